package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a ledger or marketplace event for indexing.
type EventKind string

const (
	EventProductCreated     EventKind = "product_created"
	EventIssuanceCycleSet   EventKind = "issuance_cycle_set"
	EventDeposit            EventKind = "deposit"
	EventWithdrawPrincipal  EventKind = "withdraw_principal"
	EventWithdrawCoupon     EventKind = "withdraw_coupon"
	EventWithdrawOption     EventKind = "withdraw_option"
	EventFundAccept         EventKind = "fund_accept"
	EventFundLock           EventKind = "fund_lock"
	EventIssuance           EventKind = "issuance"
	EventMature             EventKind = "mature"
	EventWeeklyCoupon       EventKind = "weekly_coupon"
	EventOptionPayout       EventKind = "option_payout"
	EventDistributeFunds    EventKind = "distribute_funds"
	EventRedeemYield        EventKind = "redeem_yield"
	EventRedeemOptionPayout EventKind = "redeem_option_payout"
	EventListingCreated     EventKind = "listing_created"
	EventListingUpdated     EventKind = "listing_updated"
	EventListingSold        EventKind = "listing_sold"
	EventListingCancelled   EventKind = "listing_cancelled"
	EventPaused             EventKind = "paused"
	EventUnpaused           EventKind = "unpaused"
)

// Event is an observability record emitted by the core. Persistence is
// best-effort; a journal failure never aborts the ledger operation that
// produced the event.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Product    string         `json:"product"`
	Kind       EventKind      `json:"kind"`
	Attrs      map[string]any `json:"attrs,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// NewEvent creates an event stamped with a fresh id and the current time.
func NewEvent(product string, kind EventKind, attrs map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Product:    product,
		Kind:       kind,
		Attrs:      attrs,
		OccurredAt: time.Now().UTC(),
	}
}
