// Package catalog resolves requested product ids into priced cart lines.
package catalog

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

var ErrProductNotFound = errors.New("product not found in catalog")

type Lookup interface {
	FindProduct(ctx context.Context, productID string) (*domain.Product, error)
}

// StoreLookup finds products by business id first and falls back to the
// store-internal ObjectID.
type StoreLookup struct {
	products repository.ProductRepository
}

func NewStoreLookup(products repository.ProductRepository) *StoreLookup {
	return &StoreLookup{products: products}
}

func (l *StoreLookup) FindProduct(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := l.products.FindByProductID(ctx, productID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrProductNotFound) {
		return nil, err
	}

	p, err = l.products.FindByObjectID(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}
