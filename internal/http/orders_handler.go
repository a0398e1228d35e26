package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, in service.PlaceOrderInput) (*service.PlaceOrderResult, error)
	GetOrdersForUser(ctx context.Context, userID string) ([]*domain.Order, error)
	GetOrder(ctx context.Context, userID, orderCode string) (*domain.Order, error)
	ListOrdersPage(ctx context.Context, page, limit int) (*service.OrderPage, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
	maxBody int64
	log     *slog.Logger
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, maxBody int64, log *slog.Logger) *OrdersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		maxBody: maxBody,
		log:     log,
	}
}

type placeOrderResponse struct {
	Message string   `json:"message"`
	Warning string   `json:"warning,omitempty"`
	Order   OrderDTO `json:"order"`
}

type ordersResponse struct {
	Count  int        `json:"count"`
	Orders []OrderDTO `json:"orders"`
}

type adminOrderDTO struct {
	OrderDTO
	UserID string `json:"userId"`
}

type orderPageResponse struct {
	Message     string          `json:"message"`
	Page        int             `json:"page"`
	Limit       int             `json:"limit"`
	TotalPages  int             `json:"totalPages"`
	TotalOrders int64           `json:"totalOrders"`
	Orders      []adminOrderDTO `json:"orders"`
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	res, err := h.orders.PlaceOrder(ctx, service.PlaceOrderInput{
		UserID:        sessionOr(r.Context(), string(req.UserID)),
		PaymentMethod: req.PaymentMethod,
		PaymentID:     req.PaymentID,
		PaymentStatus: req.PaymentStatus,
		FallbackItems: req.fallbackItems(),
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, placeOrderResponse{
		Message: "Order placed successfully",
		Warning: res.Warning,
		Order:   toOrderDTO(res.Order),
	})
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.GetOrdersForUser(ctx, getUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	out := make([]OrderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	respondJSON(w, http.StatusOK, ordersResponse{Count: len(out), Orders: out})
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, getUserIDFromContext(r.Context()), chi.URLParam(r, "orderCode"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toOrderDTO(order))
}

// ListAllOrders pages through every user's orders for back-office views.
// Unparsable page or limit values fall back to the defaults.
func (h *OrdersHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := h.orders.ListOrdersPage(ctx, page, limit)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	out := make([]adminOrderDTO, 0, len(res.Orders))
	for _, o := range res.Orders {
		out = append(out, adminOrderDTO{OrderDTO: toOrderDTO(o), UserID: o.UserID})
	}
	h.log.InfoContext(ctx, "orders page served", "page", res.Page, "limit", res.Limit, "returned", len(out))

	respondJSON(w, http.StatusOK, orderPageResponse{
		Message:     "Orders fetched successfully",
		Page:        res.Page,
		Limit:       res.Limit,
		TotalPages:  res.TotalPages,
		TotalOrders: res.TotalOrders,
		Orders:      out,
	})
}
