package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"golang.org/x/sync/singleflight"
)

type Resolver interface {
	ResolveAll(ctx context.Context, items []domain.RequestedItem) []catalog.Resolution
}

type CartConfig struct {
	DefaultCurrency   string
	FallbackImagePath string
	StoreTimeout      time.Duration
}

// CartView is the read model returned by GetCart. Amounts are rounded to
// two decimals.
type CartView struct {
	UserID    string            `json:"userId"`
	Items     []domain.CartItem `json:"cart"`
	CartTotal float64           `json:"cartTotal"`
	Currency  string            `json:"currency"`
}

type AddResult struct {
	Cart      *domain.Cart
	Result    repository.UpsertResult
	Fallbacks int
}

type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	resolver Resolver
	cfg      CartConfig
	log      *slog.Logger
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, c cache.CartCache, resolver Resolver, cfg CartConfig, log *slog.Logger) *CartService {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "INR"
	}
	return &CartService{
		repo:     repo,
		cache:    c,
		resolver: resolver,
		cfg:      cfg,
		log:      log,
	}
}

// AddToCart prices the requested items, merges them into the user's cart
// (creating it on first use) and saves the whole cart in one upsert.
func (s *CartService) AddToCart(ctx context.Context, userID string, items []domain.RequestedItem) (*AddResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("userId is required")
	}
	if len(items) == 0 {
		return nil, invalid("products must be a non-empty list")
	}

	requested := make([]domain.RequestedItem, len(items))
	for i, item := range items {
		item.ProductID = domain.NormalizeProductID(item.ProductID)
		if item.ProductID == "" {
			return nil, invalid("products[%d].productId is required", i)
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		requested[i] = item
	}

	cart, err := s.loadOrNew(ctx, userID)
	if err != nil {
		return nil, err
	}

	fallbacks := 0
	for _, res := range s.resolver.ResolveAll(ctx, requested) {
		if res.Source == catalog.SourceFallback {
			fallbacks++
		}
		cart.Merge(res.Item)
	}
	cart.Recalculate()

	result, err := s.save(ctx, cart)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "cart updated",
		"user_id", userID, "items", len(cart.Items), "result", result.String(), "fallbacks", fallbacks)

	return &AddResult{Cart: cart, Result: result, Fallbacks: fallbacks}, nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	productID = domain.NormalizeProductID(productID)
	if userID == "" || productID == "" {
		return nil, invalid("userId and productId are required")
	}

	cart, err := s.LoadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !cart.RemoveItem(productID) {
		return nil, ErrItemNotFound
	}
	cart.Recalculate()

	if _, err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// GetCart reads through the cache. A cart without lines is reported as
// not found.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("userId is required")
	}

	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get failed", "user_id", userID, "error", err)
		}

		cart, err = s.LoadCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		// Fill only if absent so a writer's newer entry wins.
		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if _, err := s.cache.SetNX(setCtx, userID, cart); err != nil {
				s.log.Warn("cache set failed", "user_id", userID, "error", err)
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	cart := v.(*domain.Cart)
	if cart.IsEmpty() {
		return nil, ErrCartNotFound
	}
	return s.view(cart), nil
}

// LoadCart reads the stored cart straight from the repository.
func (s *CartService) LoadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	ctx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	defer cancel()

	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, storeFailure("load cart", err)
	}
	return cart, nil
}

// ClearCart empties the user's cart. The cart document itself stays.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return invalid("userId is required")
	}

	cart, err := s.LoadCart(ctx, userID)
	if err != nil {
		return err
	}

	cart.Clear()
	_, err = s.save(ctx, cart)
	return err
}

func (s *CartService) loadOrNew(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.LoadCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return &domain.Cart{
			UserID:   userID,
			Items:    []domain.CartItem{},
			Currency: s.cfg.DefaultCurrency,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Currency == "" {
		cart.Currency = s.cfg.DefaultCurrency
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) (repository.UpsertResult, error) {
	storeCtx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	defer cancel()

	result, err := s.repo.SaveCart(storeCtx, cart)
	if err != nil {
		return result, storeFailure("save cart", err)
	}

	s.writeThrough(ctx, cart)
	return result, nil
}

// writeThrough replaces the cached cart with the saved one. If that fails
// the entry is dropped so the next read goes to the store.
func (s *CartService) writeThrough(ctx context.Context, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	snapshot := *cart
	snapshot.Items = domain.CloneItems(cart.Items)
	err := s.cache.Set(ctx, cart.UserID, &snapshot)
	if err == nil {
		return
	}
	s.log.WarnContext(ctx, "cache set failed", "user_id", cart.UserID, "error", err)

	if err := s.cache.Delete(ctx, cart.UserID); err != nil {
		s.log.WarnContext(ctx, "cache invalidate failed", "user_id", cart.UserID, "error", err)
	}
}

func (s *CartService) view(cart *domain.Cart) *CartView {
	items := domain.CloneItems(cart.Items)
	var total float64
	for i := range items {
		items[i].TotalPrice = domain.RoundMoney(items[i].Price * float64(items[i].Quantity))
		if items[i].ImageURL == "" {
			items[i].ImageURL = s.cfg.FallbackImagePath
		}
		total += items[i].TotalPrice
	}

	currency := cart.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	return &CartView{
		UserID:    cart.UserID,
		Items:     items,
		CartTotal: domain.RoundMoney(total),
		Currency:  currency,
	}
}
