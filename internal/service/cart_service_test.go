package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToCart_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.carts.AddToCart(ctx, "  ", []domain.RequestedItem{{ProductID: "p1"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.carts.AddToCart(ctx, "u1", nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.carts.AddToCart(ctx, "u1", []domain.RequestedItem{{ProductID: " "}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Zero(t, f.repo.getCalls, "validation must not touch the store")
}

func TestAddToCart_NewCart(t *testing.T) {
	f := newFixture()

	res, err := f.carts.AddToCart(context.Background(), "u1", []domain.RequestedItem{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "x9", Quantity: 0, Price: ptr(4), Name: "Mystery"},
	})
	require.NoError(t, err)

	assert.Equal(t, repository.Created, res.Result)
	assert.Equal(t, 1, res.Fallbacks)
	assert.Equal(t, "INR", res.Cart.Currency)
	require.Len(t, res.Cart.Items, 2)
	assert.Equal(t, 30.0, res.Cart.Items[0].TotalPrice)
	assert.Equal(t, 1, res.Cart.Items[1].Quantity, "quantity below one becomes one")
	assert.Equal(t, "Mystery", res.Cart.Items[1].Name)
	assert.Equal(t, 34.0, res.Cart.CartTotal)

	stored := f.repo.stored("u1")
	require.NotNil(t, stored)
	assert.Equal(t, 34.0, stored.CartTotal)
}

func TestAddToCart_MergeKeepsExistingPrice(t *testing.T) {
	f := newFixture()
	f.repo.put(&domain.Cart{
		UserID:   "u1",
		Currency: "INR",
		Items:    []domain.CartItem{{ProductID: "p1", Name: "Pen", Price: 10, Quantity: 3}},
	})

	res, err := f.carts.AddToCart(context.Background(), "u1", []domain.RequestedItem{
		{ProductID: "p1", Quantity: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, repository.Updated, res.Result)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 5, res.Cart.Items[0].Quantity)
	assert.Equal(t, 50.0, res.Cart.Items[0].TotalPrice)
	assert.Equal(t, 50.0, res.Cart.CartTotal)
}

func TestAddToCart_NormalizedIDsMerge(t *testing.T) {
	f := newFixture()
	f.repo.put(&domain.Cart{
		UserID: "u1",
		Items:  []domain.CartItem{{ProductID: "42", Price: 1, Quantity: 1}},
	})

	res, err := f.carts.AddToCart(context.Background(), "u1", []domain.RequestedItem{
		{ProductID: " 42 ", Quantity: 1, Price: ptr(1)},
	})
	require.NoError(t, err)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 2, res.Cart.Items[0].Quantity)
	assert.Equal(t, "INR", res.Cart.Currency, "legacy cart without currency gets the default")
}

func TestAddToCart_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.getErr = errors.New("socket closed")

	_, err := f.carts.AddToCart(context.Background(), "u1", []domain.RequestedItem{{ProductID: "p1"}})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	f.repo.getErr = nil
	f.repo.saveErr = context.DeadlineExceeded
	_, err = f.carts.AddToCart(context.Background(), "u1", []domain.RequestedItem{{ProductID: "p1"}})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAddToCart_WritesThroughCache(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.cache.Set(context.Background(), "u1", &domain.Cart{UserID: "u1"}))

	res, err := f.carts.AddToCart(context.Background(), "u1", []domain.RequestedItem{{ProductID: "p1", Quantity: 2}})
	require.NoError(t, err)

	cached := f.cache.cached("u1")
	require.NotNil(t, cached)
	require.Len(t, cached.Items, 1)
	assert.Equal(t, 20.0, cached.CartTotal)

	res.Cart.Items[0].Quantity = 99
	assert.Equal(t, 2, f.cache.cached("u1").Items[0].Quantity, "cache holds its own copy")
}

func TestAddToCart_CacheSetFailureDropsEntry(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.cache.Set(context.Background(), "u1", &domain.Cart{UserID: "u1"}))
	f.cache.setErr = errors.New("redis down")

	_, err := f.carts.AddToCart(context.Background(), "u1", []domain.RequestedItem{{ProductID: "p1"}})
	require.NoError(t, err)
	assert.False(t, f.cache.has("u1"))
}

func TestGetCart_LateFillDoesNotResurrectClearedCart(t *testing.T) {
	f := newFixture()
	seedCart(f, "u1")
	gated := newGatedCache(f.cache)
	f.carts.cache = gated
	ctx := context.Background()

	// the miss fill is parked until after the order clears the cart
	view, err := f.carts.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 35.0, view.CartTotal)

	_, err = f.svc.PlaceOrder(ctx, PlaceOrderInput{UserID: "u1", PaymentMethod: "card", PaymentStatus: "Successful"})
	require.NoError(t, err)

	close(gated.gate)
	select {
	case <-gated.done:
	case <-time.After(time.Second):
		t.Fatal("cache fill never finished")
	}

	_, err = f.carts.GetCart(ctx, "u1")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Empty(t, f.cache.cached("u1").Items)
}

func TestRemoveFromCart(t *testing.T) {
	f := newFixture()
	f.repo.put(&domain.Cart{
		UserID: "u1",
		Items: []domain.CartItem{
			{ProductID: "p1", Price: 10, Quantity: 3},
			{ProductID: "p2", Price: 2.5, Quantity: 2},
		},
	})
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		_, err := f.carts.RemoveFromCart(ctx, "u1", "")
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("no cart", func(t *testing.T) {
		_, err := f.carts.RemoveFromCart(ctx, "ghost", "p1")
		assert.ErrorIs(t, err, ErrCartNotFound)
	})

	t.Run("missing item leaves cart unchanged", func(t *testing.T) {
		before := *f.repo.stored("u1")
		saves := f.repo.saves

		_, err := f.carts.RemoveFromCart(ctx, "u1", "p404")
		assert.ErrorIs(t, err, ErrItemNotFound)
		assert.Equal(t, saves, f.repo.saves)
		assert.Equal(t, before.Items, f.repo.stored("u1").Items)
		assert.Equal(t, 35.0, f.repo.stored("u1").CartTotal)
	})

	t.Run("removes and recomputes", func(t *testing.T) {
		cart, err := f.carts.RemoveFromCart(ctx, "u1", " p1")
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, "p2", cart.Items[0].ProductID)
		assert.Equal(t, 5.0, cart.CartTotal)
		assert.Equal(t, 5.0, f.repo.stored("u1").CartTotal)
	})
}

func TestGetCart(t *testing.T) {
	f := newFixture()
	f.repo.put(&domain.Cart{
		UserID:   "u1",
		Currency: "INR",
		Items: []domain.CartItem{
			{ProductID: "a", Price: 0.1, Quantity: 3, ImageURL: "/img/a.png"},
			{ProductID: "b", Price: 1.005, Quantity: 1},
		},
	})
	ctx := context.Background()

	view, err := f.carts.GetCart(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, "u1", view.UserID)
	assert.Equal(t, "INR", view.Currency)
	require.Len(t, view.Items, 2)
	assert.Equal(t, 0.3, view.Items[0].TotalPrice)
	assert.Equal(t, "/static/fallback.png", view.Items[1].ImageURL)
	assert.Equal(t, "/img/a.png", view.Items[0].ImageURL)
	assert.InDelta(t, 1.3, view.CartTotal, 0.011)

	require.Eventually(t, func() bool { return f.cache.has("u1") }, time.Second, 10*time.Millisecond)
}

func TestGetCart_NotFound(t *testing.T) {
	f := newFixture()
	f.repo.put(&domain.Cart{UserID: "empty", Items: []domain.CartItem{}})

	_, err := f.carts.GetCart(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = f.carts.GetCart(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetCart_CacheHit(t *testing.T) {
	f := newFixture()
	cached := &domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Price: 10, Quantity: 1}}}
	require.NoError(t, f.cache.Set(context.Background(), "u1", cached))

	view, err := f.carts.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, view.CartTotal)
	assert.Zero(t, f.repo.getCalls)
}

func TestGetCart_CacheErrorFallsThrough(t *testing.T) {
	f := newFixture()
	f.cache.err = errors.New("redis down")
	f.repo.put(&domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Price: 1, Quantity: 1}}})

	view, err := f.carts.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, view.CartTotal)
}

func TestGetCart_ConcurrentCallers(t *testing.T) {
	f := newFixture()
	f.repo.put(&domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Price: 1, Quantity: 1}}})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carts.GetCart(context.Background(), "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, f.repo.getCalls, 20)
}

func TestClearCart(t *testing.T) {
	f := newFixture()
	f.repo.put(&domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "p1", Price: 1, Quantity: 1}}})

	require.NoError(t, f.carts.ClearCart(context.Background(), "u1"))

	stored := f.repo.stored("u1")
	require.NotNil(t, stored, "cart document is kept")
	assert.Empty(t, stored.Items)
	assert.Zero(t, stored.CartTotal)

	assert.ErrorIs(t, f.carts.ClearCart(context.Background(), "ghost"), ErrCartNotFound)
}
