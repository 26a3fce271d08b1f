// Package api exposes the product ledgers and the marketplace over HTTP.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured. Operator
// routes require the bearer key when one is set.
func NewServer(port string, h *Handler, operatorAPIKey string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/products", h.ListProducts)
	mux.HandleFunc("GET /api/v1/products/{name}", h.GetProduct)
	mux.HandleFunc("GET /api/v1/products/{name}/holders/{addr}", h.GetHolder)
	mux.HandleFunc("GET /api/v1/products/{name}/events", h.ListEvents)

	mux.HandleFunc("GET /api/v1/listings", h.ListListings)
	mux.HandleFunc("GET /api/v1/listings/{id}", h.GetListing)
	mux.HandleFunc("GET /api/v1/prices", h.GetReferencePrice)

	mux.HandleFunc("POST /api/v1/products/{name}/deposit", h.Deposit)
	mux.HandleFunc("POST /api/v1/products/{name}/withdrawals", h.Withdraw)

	mux.HandleFunc("POST /api/v1/listings", h.CreateListing)
	mux.HandleFunc("PATCH /api/v1/listings/{id}", h.UpdateListing)
	mux.HandleFunc("POST /api/v1/listings/{id}/cancel", h.CancelListing)
	mux.HandleFunc("POST /api/v1/listings/{id}/buy", h.BuyListing)

	protect := func(next http.HandlerFunc) http.Handler {
		if operatorAPIKey == "" {
			return next
		}
		return requireAuth(operatorAPIKey, next)
	}
	mux.Handle("POST /api/v1/products", protect(h.CreateProduct))
	mux.Handle("POST /api/v1/products/{name}/transition", protect(h.Transition))
	mux.Handle("POST /api/v1/products/{name}/cycle", protect(h.SetCycle))
	mux.Handle("POST /api/v1/products/{name}/coupon", protect(h.AccrueCoupon))
	mux.Handle("POST /api/v1/products/{name}/pause", protect(h.Pause))
	mux.Handle("POST /api/v1/products/{name}/unpause", protect(h.Unpause))

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
