package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name         string
	Timeout      time.Duration
	MaxFailures  uint32
	ResetTimeout time.Duration
}

// BreakerLookup bounds every lookup with a timeout and stops calling the
// catalog once it keeps failing. Not-found answers are healthy responses
// and don't trip the breaker.
type BreakerLookup struct {
	next    Lookup
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[*domain.Product]
}

func NewBreakerLookup(next Lookup, s BreakerSettings) *BreakerLookup {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker[*domain.Product](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
	})

	return &BreakerLookup{next: next, timeout: s.Timeout, cb: cb}
}

func (b *BreakerLookup) FindProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return b.cb.Execute(func() (*domain.Product, error) {
		if b.timeout <= 0 {
			return b.next.FindProduct(ctx, productID)
		}
		ctx, cancel := context.WithTimeout(ctx, b.timeout)
		defer cancel()
		return b.next.FindProduct(ctx, productID)
	})
}

func (b *BreakerLookup) State() gobreaker.State {
	return b.cb.State()
}
