package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	// SetNX stores cart only when no entry exists for userID yet.
	SetNX(ctx context.Context, userID string, cart *domain.Cart) (bool, error)
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Noop never hits. Used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Cart, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, string, *domain.Cart) error { return nil }
func (Noop) SetNX(context.Context, string, *domain.Cart) (bool, error) { return false, nil }
func (Noop) Delete(context.Context, string) error { return nil }
