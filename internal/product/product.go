// Package product implements the product ledger and lifecycle state machine:
// cycle parameters, status transitions, capacity accounting, and the
// coupon/option/principal owed per holder.
package product

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/accrual"
	"github.com/hedgeline/issuance/internal/domain"
)

// SettlementAsset is the pull-based transfer interface of the product's
// settlement asset.
type SettlementAsset interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, spender, from, to string, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, account string) (decimal.Decimal, error)
}

// PositionLedger is the fungible multi-class token ledger the product mints
// cycle entitlement on.
type PositionLedger interface {
	NewClass() int64
	Mint(to string, classID, qty int64) error
	Burn(from string, classID, qty int64) error
	BalanceOf(holder string, classID int64) int64
	TotalSupply(classID int64) int64
	Holders(classID int64) []string
}

// YieldVenue is an external yield destination. Accounting between receipt
// units and underlying is venue-specific and opaque to the ledger.
type YieldVenue interface {
	Deposit(ctx context.Context, from string, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, to string, receipt decimal.Decimal) (decimal.Decimal, error)
}

// Recorder receives the events the ledger emits.
type Recorder interface {
	Record(ctx context.Context, e domain.Event)
}

// Config holds the creation parameters of a product.
type Config struct {
	Name         string
	Underlying   string
	Manager      string
	Counterparty string
	LotSize      decimal.Decimal
	MaxCapacity  decimal.Decimal
	Cycle        domain.IssuanceCycle
}

// Ledger is one product instance. Entry points are serialized; a nested
// re-entry through an external asset or venue call fails with
// ErrReentrantCall instead of deadlocking.
type Ledger struct {
	mu sync.Mutex

	name         string
	underlying   string
	manager      string
	counterparty string
	lot          decimal.Decimal
	maxCapacity  decimal.Decimal
	cycle        domain.IssuanceCycle

	asset     SettlementAsset
	positions PositionLedger
	recorder  Recorder

	operators map[string]bool

	status       domain.Status
	currentCycle int64
	prevCycle    int64
	capacity     decimal.Decimal
	investors    int

	everDeposited map[string]bool
	holders       map[string]*domain.HolderInfo

	optionProfit decimal.Decimal

	distributed   bool
	venue         YieldVenue
	venueReceipt  decimal.Decimal
	deployedYield decimal.Decimal

	paused bool

	totalIn  decimal.Decimal
	totalOut decimal.Decimal
}

// NewLedger creates a product ledger bound to a settlement asset and a
// position ledger. The manager starts as the only whitelisted operator.
func NewLedger(cfg Config, settlement SettlementAsset, positions PositionLedger, recorder Recorder) (*Ledger, error) {
	if settlement == nil {
		panic("product.NewLedger: settlement is nil")
	}
	if positions == nil {
		panic("product.NewLedger: positions is nil")
	}
	if cfg.Name == "" || cfg.LotSize.Sign() <= 0 {
		return nil, domain.ErrStatusInvalid
	}
	if !domain.IsWholeLots(cfg.MaxCapacity, cfg.LotSize) {
		return nil, domain.ErrMaxCapacity
	}

	l := &Ledger{
		name:          cfg.Name,
		underlying:    cfg.Underlying,
		manager:       cfg.Manager,
		counterparty:  cfg.Counterparty,
		lot:           cfg.LotSize,
		maxCapacity:   cfg.MaxCapacity,
		cycle:         cfg.Cycle,
		asset:         settlement,
		positions:     positions,
		recorder:      recorder,
		operators:     map[string]bool{cfg.Manager: true},
		status:        domain.StatusPending,
		prevCycle:     -1,
		capacity:      decimal.Zero,
		everDeposited: make(map[string]bool),
		holders:       make(map[string]*domain.HolderInfo),
		optionProfit:  decimal.Zero,
		totalIn:       decimal.Zero,
		totalOut:      decimal.Zero,
	}
	l.currentCycle = positions.NewClass()
	return l, nil
}

type guardKey struct{}

// enter serializes an entry point. The returned context carries an
// in-progress marker for the duration of the call, so a nested call arriving
// through an external asset or venue callback fails with ErrReentrantCall
// instead of deadlocking. Plain concurrent callers queue on the mutex.
func (l *Ledger) enter(ctx context.Context) (context.Context, error) {
	if g, ok := ctx.Value(guardKey{}).(*Ledger); ok && g == l {
		return nil, domain.ErrReentrantCall
	}
	l.mu.Lock()
	return context.WithValue(ctx, guardKey{}, l), nil
}

func (l *Ledger) requireOperator(caller string) error {
	if !l.operators[caller] {
		return domain.ErrUnauthorized
	}
	return nil
}

// Whitelist adds an operator. Manager only.
func (l *Ledger) Whitelist(ctx context.Context, caller, operator string) error {
	if _, err := l.enter(ctx); err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.manager {
		return domain.ErrUnauthorized
	}
	l.operators[operator] = true
	return nil
}

func (l *Ledger) holder(addr string) *domain.HolderInfo {
	h, ok := l.holders[addr]
	if !ok {
		h = domain.NewHolderInfo()
		l.holders[addr] = h
	}
	return h
}

// classBalances snapshots every known holder's current balance in a class.
func (l *Ledger) classBalances(classID int64) []accrual.HolderBalance {
	addrs := l.positions.Holders(classID)
	balances := make([]accrual.HolderBalance, 0, len(addrs))
	for _, addr := range addrs {
		balances = append(balances, accrual.HolderBalance{
			Address: addr,
			Units:   l.positions.BalanceOf(addr, classID),
		})
	}
	return balances
}

func (l *Ledger) record(ctx context.Context, kind domain.EventKind, attrs map[string]any) {
	if l.recorder == nil {
		return
	}
	l.recorder.Record(ctx, domain.NewEvent(l.name, kind, attrs))
}
