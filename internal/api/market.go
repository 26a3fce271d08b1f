package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ListListings handles GET /api/v1/listings.
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	if h.market == nil {
		writeError(w, http.StatusNotFound, "marketplace not configured")
		return
	}
	writeJSON(w, http.StatusOK, h.market.OpenListings())
}

// GetListing handles GET /api/v1/listings/{id}.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	if h.market == nil {
		writeError(w, http.StatusNotFound, "marketplace not configured")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	l, ok := h.market.Listing(id)
	if !ok || l.ID == 0 {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// GetReferencePrice handles GET /api/v1/prices?symbol=BTC/USD.
// Reference prices are informational; settlement always uses the list price.
func (h *Handler) GetReferencePrice(w http.ResponseWriter, r *http.Request) {
	if h.market == nil {
		writeError(w, http.StatusNotFound, "marketplace not configured")
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter required")
		return
	}

	price, err := h.market.ReferencePrice(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusNotFound, "no price available for symbol")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "priceUsd": price})
}

// createListingRequest is the POST /api/v1/listings body.
type createListingRequest struct {
	Seller    string          `json:"seller"`
	Product   string          `json:"product"`
	CycleID   int64           `json:"cycleId"`
	Quantity  int64           `json:"quantity"`
	PayAsset  string          `json:"payAsset"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	StartAt   time.Time       `json:"startAt"`
}

// CreateListing handles POST /api/v1/listings.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	if h.market == nil {
		writeError(w, http.StatusNotFound, "marketplace not configured")
		return
	}

	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seller == "" {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	led, err := h.products.GetProduct(req.Product)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := h.market.ListItem(r.Context(), req.Seller, led, req.Product, req.CycleID, req.Quantity, req.PayAsset, req.UnitPrice, req.StartAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"listingId": id})
}

// updateListingRequest is the PATCH /api/v1/listings/{id} body.
type updateListingRequest struct {
	Caller    string          `json:"caller"`
	PayAsset  string          `json:"payAsset"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// UpdateListing handles PATCH /api/v1/listings/{id}.
func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	if h.market == nil {
		writeError(w, http.StatusNotFound, "marketplace not configured")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	var req updateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Caller == "" {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.market.UpdateListing(r.Context(), req.Caller, id, req.PayAsset, req.UnitPrice); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelListing handles POST /api/v1/listings/{id}/cancel.
func (h *Handler) CancelListing(w http.ResponseWriter, r *http.Request) {
	if h.market == nil {
		writeError(w, http.StatusNotFound, "marketplace not configured")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	var req struct {
		Caller string `json:"caller"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Caller == "" {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.market.CancelListing(r.Context(), req.Caller, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// buyListingRequest is the POST /api/v1/listings/{id}/buy body. The expected
// asset and seller guard against a listing changing between read and buy.
type buyListingRequest struct {
	Buyer    string `json:"buyer"`
	PayAsset string `json:"payAsset"`
	Seller   string `json:"seller"`
}

// BuyListing handles POST /api/v1/listings/{id}/buy.
func (h *Handler) BuyListing(w http.ResponseWriter, r *http.Request) {
	if h.market == nil {
		writeError(w, http.StatusNotFound, "marketplace not configured")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}

	var req buyListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Buyer == "" {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.market.BuyItem(r.Context(), req.Buyer, id, req.PayAsset, req.Seller); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
