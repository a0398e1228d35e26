package catalog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fjod/go_shop/internal/domain"
	"golang.org/x/sync/errgroup"
)

type Source int

const (
	SourceCatalog Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "catalog"
}

// Resolution is a priced cart line plus where its price and name came from.
// Cause is set when the catalog failed rather than simply missed.
type Resolution struct {
	Source Source
	Item   domain.CartItem
	Cause  error
}

type Resolver struct {
	lookup        Lookup
	fallbackImage string
	log           *slog.Logger
}

func NewResolver(lookup Lookup, fallbackImage string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{lookup: lookup, fallbackImage: fallbackImage, log: log}
}

// Resolve prices one requested item. Catalog values always win; the
// request's price and name are used only when the catalog can't answer.
// Resolve never fails.
func (r *Resolver) Resolve(ctx context.Context, req domain.RequestedItem) Resolution {
	productID := domain.NormalizeProductID(req.ProductID)

	p, err := r.lookup.FindProduct(ctx, productID)
	if err == nil && p != nil {
		image := p.PrimaryImage()
		if image == "" {
			image = r.fallbackImage
		}
		return Resolution{
			Source: SourceCatalog,
			Item: domain.CartItem{
				ProductID:  productID,
				Name:       p.Name,
				Price:      p.Price,
				Quantity:   req.Quantity,
				TotalPrice: p.Price * float64(req.Quantity),
				ImageURL:   image,
			},
		}
	}

	res := Resolution{Source: SourceFallback, Item: r.fallbackItem(productID, req)}
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		res.Cause = err
		r.log.WarnContext(ctx, "catalog lookup failed, using request values",
			"product_id", productID, "error", err)
	} else {
		r.log.InfoContext(ctx, "product not in catalog, using request values",
			"product_id", productID)
	}
	return res
}

// ResolveAll resolves items concurrently. The result at index i always
// belongs to items[i].
func (r *Resolver) ResolveAll(ctx context.Context, items []domain.RequestedItem) []Resolution {
	out := make([]Resolution, len(items))

	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			out[i] = r.Resolve(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (r *Resolver) fallbackItem(productID string, req domain.RequestedItem) domain.CartItem {
	var price float64
	if req.Price != nil && *req.Price > 0 {
		price = *req.Price
	}
	return domain.CartItem{
		ProductID:  productID,
		Name:       req.Name,
		Price:      price,
		Quantity:   req.Quantity,
		TotalPrice: price * float64(req.Quantity),
		ImageURL:   r.fallbackImage,
	}
}
