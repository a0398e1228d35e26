package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	AddToCart(ctx context.Context, userID string, items []domain.RequestedItem) (*service.AddResult, error)
	RemoveFromCart(ctx context.Context, userID, productID string) (*domain.Cart, error)
	GetCart(ctx context.Context, userID string) (*service.CartView, error)
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
	maxBody int64
	log     *slog.Logger
}

func NewCartHandler(carts CartService, timeout time.Duration, maxBody int64, log *slog.Logger) *CartHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		maxBody: maxBody,
		log:     log,
	}
}

type cartResponse struct {
	Message string       `json:"message"`
	Cart    *domain.Cart `json:"cart"`
}

func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddToCartRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	userID := sessionOr(r.Context(), string(req.UserID))
	res, err := h.carts.AddToCart(ctx, userID, req.items())
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{
		Message: "Product added to cart successfully",
		Cart:    res.Cart,
	})
}

func (h *CartHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RemoveFromCartRequestDTO
	if !decodeJSON(w, r, h.maxBody, &req) {
		return
	}

	userID := sessionOr(r.Context(), string(req.UserID))
	cart, err := h.carts.RemoveFromCart(ctx, userID, string(req.ProductID))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse{
		Message: "Product removed from cart successfully",
		Cart:    cart,
	})
}

// GetCart serves only the caller's own cart. Another user's cart is
// reported as not found.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if strings.TrimSpace(chi.URLParam(r, "userId")) != userID {
		handleServiceError(w, r, h.log, service.ErrCartNotFound)
		return
	}

	view, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// ClearCart empties the authenticated user's cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.ClearCart(ctx, getUserIDFromContext(r.Context())); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared successfully"})
}

// sessionOr prefers the authenticated user over the id sent in the body.
func sessionOr(ctx context.Context, bodyUserID string) string {
	if userID := getUserIDFromContext(ctx); userID != "" {
		return userID
	}
	return bodyUserID
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBody int64, dst interface{}) bool {
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request", "invalid JSON body")
		return false
	}
	return true
}
