package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

var (
	ErrCartNotFound       = errors.New("cart not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateOrderCode = errors.New("order code already exists")
	ErrProductNotFound    = errors.New("product not found")
)

// UpsertResult tells whether SaveCart inserted a new cart or replaced an existing one.
type UpsertResult int

const (
	Updated UpsertResult = iota
	Created
)

func (r UpsertResult) String() string {
	if r == Created {
		return "created"
	}
	return "updated"
}

// CartRepository defines the interface for cart data operations
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) (UpsertResult, error)
}

// OrderRepository stores orders. There is deliberately no update method.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	// ListOrders pages through every order, newest first, and reports the
	// total count.
	ListOrders(ctx context.Context, skip, limit int64) ([]*domain.Order, int64, error)
	GetOrderByCode(ctx context.Context, orderCode string) (*domain.Order, error)
}

type ProductRepository interface {
	FindByProductID(ctx context.Context, productID string) (*domain.Product, error)
	FindByObjectID(ctx context.Context, hexID string) (*domain.Product, error)
}
