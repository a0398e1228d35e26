package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig, carts *CartHandler, orders *OrdersHandler, auth *Authenticator, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(auth.Optional)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Post("/add", carts.AddToCart)
		r.Delete("/delete", carts.RemoveFromCart)
		r.With(auth.Required).Get("/{userId}", carts.GetCart)
		r.With(auth.Required).Delete("/", carts.ClearCart)
	})

	r.Post("/order", orders.PlaceOrder)

	r.Route("/orders", func(r chi.Router) {
		r.Use(auth.Required)
		r.Get("/", orders.ListOrders)
		r.Get("/{orderCode}", orders.GetOrder)
	})

	r.With(auth.Admin).Get("/admin/orders", orders.ListAllOrders)

	return r
}
