package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

type mockCartRepository struct {
	m        sync.RWMutex
	carts    map[string]*domain.Cart
	getErr   error
	saveErr  error
	getCalls int
	saves    int
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: map[string]*domain.Cart{}}
}

func (m *mockCartRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cp := *c
	cp.Items = domain.CloneItems(c.Items)
	return &cp, nil
}

func (m *mockCartRepository) SaveCart(_ context.Context, cart *domain.Cart) (repository.UpsertResult, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return repository.Updated, m.saveErr
	}
	m.saves++
	_, exists := m.carts[cart.UserID]
	cp := *cart
	cp.Items = domain.CloneItems(cart.Items)
	m.carts[cart.UserID] = &cp
	if exists {
		return repository.Updated, nil
	}
	return repository.Created, nil
}

func (m *mockCartRepository) stored(userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[userID]
}

func (m *mockCartRepository) put(cart *domain.Cart) {
	m.m.Lock()
	defer m.m.Unlock()
	cart.Recalculate()
	m.carts[cart.UserID] = cart
}

type mockCache struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	err     error
	setErr  error
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[string]*domain.Cart{}}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.carts[userID] = cart
	return nil
}

func (m *mockCache) SetNX(_ context.Context, userID string, cart *domain.Cart) (bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.carts[userID]; ok {
		return false, nil
	}
	m.carts[userID] = cart
	return true, nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	delete(m.carts, userID)
	return nil
}

func (m *mockCache) has(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[userID]
	return ok
}

func (m *mockCache) cached(userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[userID]
}

// gatedCache holds read-miss fills until gate is closed.
type gatedCache struct {
	*mockCache
	gate chan struct{}
	done chan struct{}
}

func newGatedCache(c *mockCache) *gatedCache {
	return &gatedCache{mockCache: c, gate: make(chan struct{}), done: make(chan struct{})}
}

func (g *gatedCache) SetNX(ctx context.Context, userID string, cart *domain.Cart) (bool, error) {
	defer close(g.done)
	<-g.gate
	return g.mockCache.SetNX(ctx, userID, cart)
}

// mockResolver prices from a fixed table and falls back to the request.
type mockResolver struct {
	products map[string]domain.Product
}

func (r *mockResolver) ResolveAll(_ context.Context, items []domain.RequestedItem) []catalog.Resolution {
	out := make([]catalog.Resolution, len(items))
	for i, req := range items {
		if p, ok := r.products[req.ProductID]; ok {
			out[i] = catalog.Resolution{
				Source: catalog.SourceCatalog,
				Item: domain.CartItem{
					ProductID: req.ProductID, Name: p.Name, Price: p.Price,
					Quantity: req.Quantity, TotalPrice: p.Price * float64(req.Quantity),
				},
			}
			continue
		}
		var price float64
		if req.Price != nil {
			price = *req.Price
		}
		out[i] = catalog.Resolution{
			Source: catalog.SourceFallback,
			Item: domain.CartItem{
				ProductID: req.ProductID, Name: req.Name, Price: price,
				Quantity: req.Quantity, TotalPrice: price * float64(req.Quantity),
			},
		}
	}
	return out
}

type mockOrderRepository struct {
	m          sync.Mutex
	orders     []*domain.Order
	err        error
	duplicates int // first N creates fail with a duplicate code
	attempts   int
	lastSkip   int64
	lastLimit  int64
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.attempts++
	if m.err != nil {
		return m.err
	}
	if m.duplicates > 0 {
		m.duplicates--
		return repository.ErrDuplicateOrderCode
	}
	order.ID = "oid-" + order.OrderCode
	m.orders = append(m.orders, order)
	return nil
}

func (m *mockOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Order{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *mockOrderRepository) ListOrders(_ context.Context, skip, limit int64) ([]*domain.Order, int64, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.lastSkip, m.lastLimit = skip, limit
	if m.err != nil {
		return nil, 0, m.err
	}
	out := []*domain.Order{}
	for i := len(m.orders) - 1 - int(skip); i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, m.orders[i])
	}
	return out, int64(len(m.orders)), nil
}

func (m *mockOrderRepository) GetOrderByCode(_ context.Context, code string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, o := range m.orders {
		if o.OrderCode == code {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) count() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.orders)
}

// failingClearStore wraps a CartStore and makes ClearCart fail.
type failingClearStore struct {
	CartStore
	err error
}

func (f failingClearStore) ClearCart(context.Context, string) error { return f.err }

type mockPublisher struct {
	m         sync.Mutex
	published []*domain.Order
	err       error
}

func (p *mockPublisher) PublishOrderPlaced(_ context.Context, order *domain.Order) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.published = append(p.published, order)
	return p.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

type fixture struct {
	repo      *mockCartRepository
	cache     *mockCache
	orders    *mockOrderRepository
	publisher *mockPublisher
	resolver  *mockResolver
	carts     *CartService
	svc       *OrderService
}

func newFixture() *fixture {
	f := &fixture{
		repo:      newMockCartRepository(),
		cache:     newMockCache(),
		orders:    &mockOrderRepository{},
		publisher: &mockPublisher{},
	}
	f.resolver = &mockResolver{products: map[string]domain.Product{
		"p1": {ProductID: "p1", Name: "Pen", Price: 10},
		"p2": {ProductID: "p2", Name: "Notebook", Price: 2.5},
	}}
	f.carts = NewCartService(f.repo, f.cache, f.resolver, CartConfig{
		DefaultCurrency:   "INR",
		FallbackImagePath: "/static/fallback.png",
	}, quietLogger())
	f.svc = NewOrderService(f.carts, f.orders, f.publisher, OrderConfig{CodeAttempts: 3}, quietLogger())
	f.svc.now = fixedClock
	return f
}
