package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/domain"
	"github.com/hedgeline/issuance/internal/journal"
	"github.com/hedgeline/issuance/internal/market"
	"github.com/hedgeline/issuance/internal/product"
	"github.com/hedgeline/issuance/internal/registry"
)

// Handler provides HTTP endpoints for the issuance API.
type Handler struct {
	products *registry.Registry
	market   *market.Marketplace
	events   journal.Repository
	operator string
}

// NewHandler creates a new API handler. events may be nil when no event
// store is configured; operator is the address state transitions run as.
func NewHandler(products *registry.Registry, mkt *market.Marketplace, events journal.Repository, operator string) *Handler {
	if products == nil {
		panic("api.NewHandler: products is nil")
	}
	return &Handler{products: products, market: mkt, events: events, operator: operator}
}

// ListProducts handles GET /api/v1/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	states := lo.Map(h.products.All(), func(led *product.Ledger, _ int) product.State {
		return led.Snapshot()
	})
	writeJSON(w, http.StatusOK, states)
}

// GetProduct handles GET /api/v1/products/{name}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	led, err := h.products.GetProduct(r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, led.Snapshot())
}

// holderResponse is the per-holder view including the lock-up derived
// transferable balance.
type holderResponse struct {
	Holder            string            `json:"holder"`
	Units             int64             `json:"units"`
	TransferableUnits int64             `json:"transferableUnits"`
	Info              domain.HolderInfo `json:"info"`
}

// GetHolder handles GET /api/v1/products/{name}/holders/{addr}.
func (h *Handler) GetHolder(w http.ResponseWriter, r *http.Request) {
	led, err := h.products.GetProduct(r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	addr := r.PathValue("addr")
	info, _ := led.HolderInfo(addr)
	transferable := led.TransferableUnits(addr)

	var units int64
	for _, p := range led.Positions() {
		if p.Holder == addr {
			units = p.Units
			break
		}
	}

	writeJSON(w, http.StatusOK, holderResponse{
		Holder:            addr,
		Units:             units,
		TransferableUnits: transferable,
		Info:              info,
	})
}

// ListEvents handles GET /api/v1/products/{name}/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusNotFound, "event store not configured")
		return
	}

	const maxLimit = 500
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	events, err := h.events.ListByProduct(r.Context(), r.PathValue("name"), limit)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// createProductRequest is the POST /api/v1/products body.
type createProductRequest struct {
	Name         string               `json:"name"`
	Underlying   string               `json:"underlying"`
	Manager      string               `json:"manager"`
	Counterparty string               `json:"counterparty"`
	LotSize      decimal.Decimal      `json:"lotSize"`
	MaxCapacity  decimal.Decimal      `json:"maxCapacity"`
	Cycle        domain.IssuanceCycle `json:"issuanceCycle"`
}

// CreateProduct handles POST /api/v1/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Manager == "" {
		req.Manager = h.operator
	}

	led, err := h.products.CreateProduct(r.Context(), product.Config{
		Name:         req.Name,
		Underlying:   req.Underlying,
		Manager:      req.Manager,
		Counterparty: req.Counterparty,
		LotSize:      req.LotSize,
		MaxCapacity:  req.MaxCapacity,
		Cycle:        req.Cycle,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, led.Snapshot())
}

// Transition handles POST /api/v1/products/{name}/transition.
// Body: {"action": "fundAccept" | "fundLock" | "issuance" | "mature"}.
func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	led, err := h.products.GetProduct(r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	switch req.Action {
	case "fundAccept":
		err = led.FundAccept(ctx, h.operator)
	case "fundLock":
		err = led.FundLock(ctx, h.operator)
	case "issuance":
		err = led.Issuance(ctx, h.operator)
	case "mature":
		err = led.Mature(ctx, h.operator)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, led.Snapshot())
}

// SetCycle handles POST /api/v1/products/{name}/cycle.
func (h *Handler) SetCycle(w http.ResponseWriter, r *http.Request) {
	var cycle domain.IssuanceCycle
	if err := json.NewDecoder(r.Body).Decode(&cycle); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.products.SetIssuanceCycle(r.Context(), h.operator, r.PathValue("name"), cycle); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AccrueCoupon handles POST /api/v1/products/{name}/coupon.
func (h *Handler) AccrueCoupon(w http.ResponseWriter, r *http.Request) {
	led, err := h.products.GetProduct(r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := led.WeeklyCoupon(r.Context(), h.operator); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pause handles POST /api/v1/products/{name}/pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Unpause handles POST /api/v1/products/{name}/unpause.
func (h *Handler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *Handler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	led, err := h.products.GetProduct(r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if paused {
		err = led.Pause(r.Context(), h.operator)
	} else {
		err = led.Unpause(r.Context(), h.operator)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// depositRequest is the POST /api/v1/products/{name}/deposit body.
type depositRequest struct {
	Caller string          `json:"caller"`
	Amount decimal.Decimal `json:"amount"`
	TopUp  bool            `json:"topUp"`
}

// Deposit handles POST /api/v1/products/{name}/deposit.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	led, err := h.products.GetProduct(r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Caller == "" {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := led.Deposit(r.Context(), req.Caller, req.Amount, req.TopUp); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, led.Snapshot())
}

// withdrawRequest is the POST /api/v1/products/{name}/withdrawals body.
type withdrawRequest struct {
	Caller string `json:"caller"`
	Kind   string `json:"kind"` // principal | coupon | option
}

// Withdraw handles POST /api/v1/products/{name}/withdrawals.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	led, err := h.products.GetProduct(r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Caller == "" {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx := r.Context()
	switch req.Kind {
	case "principal":
		err = led.WithdrawPrincipal(ctx, req.Caller)
	case "coupon":
		err = led.WithdrawCoupon(ctx, req.Caller)
	case "option":
		err = led.WithdrawOption(ctx, req.Caller)
	default:
		writeError(w, http.StatusBadRequest, "unknown withdrawal kind")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps ledger sentinels onto HTTP statuses and keeps the
// exact sentinel text as the client-visible message.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, domainStatus(err), err.Error())
}

func domainStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrNotSeller):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrZeroAmount),
		errors.Is(err, domain.ErrNotWholeLots),
		errors.Is(err, domain.ErrMaxCapacity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotAccepting),
		errors.Is(err, domain.ErrNotLocked),
		errors.Is(err, domain.ErrNotIssued),
		errors.Is(err, domain.ErrAlreadyIssued),
		errors.Is(err, domain.ErrStatusInvalid),
		errors.Is(err, domain.ErrPaused),
		errors.Is(err, domain.ErrDistributed),
		errors.Is(err, domain.ErrNotDistributed),
		errors.Is(err, domain.ErrListingNotLive),
		errors.Is(err, domain.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficient),
		errors.Is(err, domain.ErrCapacityFull),
		errors.Is(err, domain.ErrNoPrincipal),
		errors.Is(err, domain.ErrUnitsLocked),
		errors.Is(err, domain.ErrNotApprovedForAll),
		errors.Is(err, domain.ErrSelfPurchase),
		errors.Is(err, domain.ErrAssetMismatch),
		errors.Is(err, domain.ErrSellerMismatch),
		errors.Is(err, domain.ErrAssetNotAllowed):
		return http.StatusUnprocessableEntity
	default:
		slog.Error("ledger operation failed", "error", err)
		return http.StatusInternalServerError
	}
}
