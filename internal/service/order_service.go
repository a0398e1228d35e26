package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/google/uuid"
)

const clearCartWarning = "order placed but the cart could not be cleared"

type CartStore interface {
	LoadCart(ctx context.Context, userID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

type OrderConfig struct {
	DefaultCurrency string
	CodeAttempts    int
	StoreTimeout    time.Duration
}

type PlaceOrderInput struct {
	UserID        string
	PaymentMethod string
	PaymentID     string
	PaymentStatus string
	FallbackItems []domain.CartItem
}

// PlaceOrderResult carries the persisted order. Warning is set when the
// order went through but a follow-up step did not.
type PlaceOrderResult struct {
	Order   *domain.Order
	Warning string
}

type OrderService struct {
	carts     CartStore
	orders    repository.OrderRepository
	publisher OrderPublisher
	cfg       OrderConfig
	log       *slog.Logger

	now     func() time.Time
	newCode func(time.Time) string
}

func NewOrderService(carts CartStore, orders repository.OrderRepository, publisher OrderPublisher, cfg OrderConfig, log *slog.Logger) *OrderService {
	if cfg.CodeAttempts < 1 {
		cfg.CodeAttempts = 3
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "INR"
	}
	if log == nil {
		log = slog.Default()
	}
	return &OrderService{
		carts:     carts,
		orders:    orders,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		newCode:   NewOrderCode,
	}
}

// NewOrderCode returns ORD-<UTC yyyymmddhhmmss>-<6 random hex chars>.
func NewOrderCode(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("ORD-%s-%s", t.UTC().Format("20060102150405"), suffix)
}

// PlaceOrder snapshots the stored cart (or the caller's fallback items when
// there is no cart) into a new order and empties the cart afterwards.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*PlaceOrderResult, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, invalid("userId is required")
	}
	paymentMethod := strings.TrimSpace(in.PaymentMethod)
	if paymentMethod == "" {
		return nil, invalid("paymentMethod is required")
	}

	paymentStatus := domain.PaymentStatusFailed
	if strings.TrimSpace(in.PaymentStatus) != "" {
		ps, ok := domain.ParsePaymentStatus(in.PaymentStatus)
		if !ok {
			return nil, invalid("unknown paymentStatus %q", in.PaymentStatus)
		}
		paymentStatus = ps
	}

	cart, err := s.carts.LoadCart(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	var (
		items    []domain.CartItem
		total    float64
		currency = s.cfg.DefaultCurrency
		fromCart bool
	)
	switch {
	case !cart.IsEmpty():
		items = domain.CloneItems(cart.Items)
		total = cart.CartTotal
		if cart.Currency != "" {
			currency = cart.Currency
		}
		fromCart = true
	case len(in.FallbackItems) > 0:
		items, total, err = normalizeFallback(in.FallbackItems)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrEmptyCart
	}

	paymentID := strings.TrimSpace(in.PaymentID)
	now := s.now().UTC()
	if paymentID == "" {
		paymentID = fmt.Sprintf("pay_%d", now.UnixMilli())
	}

	order := &domain.Order{
		UserID:        userID,
		Items:         items,
		Total:         total,
		Currency:      currency,
		PaymentMethod: paymentMethod,
		PaymentID:     paymentID,
		PaymentStatus: paymentStatus,
		Status:        domain.StatusFor(paymentStatus),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.create(ctx, order); err != nil {
		return nil, err
	}

	result := &PlaceOrderResult{Order: order}

	if fromCart {
		if err := s.carts.ClearCart(ctx, userID); err != nil {
			s.log.ErrorContext(ctx, "failed to clear cart after order",
				"user_id", userID, "order_code", order.OrderCode, "error", err)
			result.Warning = clearCartWarning
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
			s.log.WarnContext(ctx, "failed to publish order placed event",
				"order_code", order.OrderCode, "error", err)
		}
	}

	s.log.InfoContext(ctx, "order placed",
		"user_id", userID, "order_code", order.OrderCode,
		"payment_status", string(paymentStatus), "items", len(items))

	return result, nil
}

func (s *OrderService) GetOrdersForUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, invalid("userId is required")
	}

	ctx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	defer cancel()

	orders, err := s.orders.ListOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, storeFailure("list orders", err)
	}
	return orders, nil
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// OrderPage is one page of the full order history.
type OrderPage struct {
	Page        int
	Limit       int
	TotalPages  int
	TotalOrders int64
	Orders      []*domain.Order
}

// ListOrdersPage pages through all orders, newest first. Pages start at 1;
// a page or limit below 1 falls back to the defaults and limit is capped.
func (s *OrderService) ListOrdersPage(ctx context.Context, page, limit int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	ctx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	defer cancel()

	skip := int64(page-1) * int64(limit)
	orders, total, err := s.orders.ListOrders(ctx, skip, int64(limit))
	if err != nil {
		return nil, storeFailure("list orders page", err)
	}

	return &OrderPage{
		Page:        page,
		Limit:       limit,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
		TotalOrders: total,
		Orders:      orders,
	}, nil
}

// GetOrder returns one of the user's orders. Orders of other users are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderCode string) (*domain.Order, error) {
	userID = strings.TrimSpace(userID)
	orderCode = strings.TrimSpace(orderCode)
	if userID == "" || orderCode == "" {
		return nil, invalid("userId and orderCode are required")
	}

	ctx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
	defer cancel()

	order, err := s.orders.GetOrderByCode(ctx, orderCode)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, storeFailure("get order", err)
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// create inserts order, drawing a fresh code whenever the previous one
// collides.
func (s *OrderService) create(ctx context.Context, order *domain.Order) error {
	for attempt := 1; attempt <= s.cfg.CodeAttempts; attempt++ {
		order.OrderCode = s.newCode(order.CreatedAt)

		storeCtx, cancel := storeContext(ctx, s.cfg.StoreTimeout)
		err := s.orders.CreateOrder(storeCtx, order)
		cancel()

		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateOrderCode) {
			return storeFailure("create order", err)
		}
		s.log.WarnContext(ctx, "order code collision, retrying",
			"order_code", order.OrderCode, "attempt", attempt)
	}
	return storeFailure("create order", repository.ErrDuplicateOrderCode)
}

func normalizeFallback(in []domain.CartItem) ([]domain.CartItem, float64, error) {
	items := make([]domain.CartItem, 0, len(in))
	var total float64
	for i, item := range in {
		item.ProductID = domain.NormalizeProductID(item.ProductID)
		if item.ProductID == "" {
			return nil, 0, invalid("cartItems[%d].productId is required", i)
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if item.Price < 0 {
			item.Price = 0
		}
		item.TotalPrice = item.Price * float64(item.Quantity)
		total += item.TotalPrice
		items = append(items, item)
	}
	return items, total, nil
}
