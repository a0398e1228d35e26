package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_shop/internal/service"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message, detail string) {
	if detail == "" {
		detail = http.StatusText(status)
	}
	respondJSON(w, status, ErrorResponse{
		Message: message,
		Error:   detail,
		Code:    code,
	})
}

// handleServiceError maps service errors onto HTTP statuses. Store and
// unexpected errors are logged in full and reported without detail.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request", err.Error())
	case errors.Is(err, service.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", "Cart not found", err.Error())
	case errors.Is(err, service.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", "Product not found in cart", err.Error())
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusNotFound, "empty_cart", "Cart is empty", err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "Order not found", err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		log.ErrorContext(r.Context(), "store unavailable", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "store_unavailable", "Server error", service.ErrStoreUnavailable.Error())
	default:
		log.ErrorContext(r.Context(), "unexpected error", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Server error", "")
	}
}
