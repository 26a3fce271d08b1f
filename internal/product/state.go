package product

import (
	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/domain"
)

// State is a read-only snapshot of a product for the API and the journal.
type State struct {
	Name         string               `json:"name"`
	Underlying   string               `json:"underlying"`
	Status       domain.Status        `json:"status"`
	CurrentCycle int64                `json:"currentCycleId"`
	PrevCycle    int64                `json:"prevCycleId"`
	Capacity     decimal.Decimal      `json:"currentCapacity"`
	MaxCapacity  decimal.Decimal      `json:"maxCapacity"`
	LotSize      decimal.Decimal      `json:"lotSize"`
	Investors    int                  `json:"numOfInvestors"`
	Paused       bool                 `json:"paused"`
	Distributed  bool                 `json:"distributed"`
	OptionProfit decimal.Decimal      `json:"optionProfit"`
	Cycle        domain.IssuanceCycle `json:"issuanceCycle"`
}

// Snapshot returns the product's current state.
func (l *Ledger) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return State{
		Name:         l.name,
		Underlying:   l.underlying,
		Status:       l.status,
		CurrentCycle: l.currentCycle,
		PrevCycle:    l.prevCycle,
		Capacity:     l.capacity,
		MaxCapacity:  l.maxCapacity,
		LotSize:      l.lot,
		Investors:    l.investors,
		Paused:       l.paused,
		Distributed:  l.distributed,
		OptionProfit: l.optionProfit,
		Cycle:        l.cycle,
	}
}

// Name returns the product's unique name, which is also its settlement-asset
// account.
func (l *Ledger) Name() string { return l.name }

// Status returns the current lifecycle status.
func (l *Ledger) Status() domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// CurrentCycle returns the live cycle (token class) id.
func (l *Ledger) CurrentCycle() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentCycle
}

// PrevCycle returns the previous cycle id, or -1 before the first issuance.
func (l *Ledger) PrevCycle() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prevCycle
}

// Capacity returns the currently deposited capacity.
func (l *Ledger) Capacity() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity
}

// Investors returns the distinct depositor count.
func (l *Ledger) Investors() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.investors
}

// Paused reports whether the pause overlay is set.
func (l *Ledger) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// HolderInfo returns a copy of the holder's record.
func (l *Ledger) HolderInfo(addr string) (domain.HolderInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.holders[addr]
	if !ok {
		return domain.HolderInfo{Coupon: decimal.Zero, OptionPayout: decimal.Zero}, false
	}
	return *h, true
}

// TransferableUnits returns how many current-cycle units the holder may list
// for sale: rolled units stay locked until their principal is withdrawn.
func (l *Ledger) TransferableUnits(holder string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.positions.BalanceOf(holder, l.currentCycle)
	if h, ok := l.holders[holder]; ok {
		bal -= h.RolledUnits
	}
	return max(bal, 0)
}

// Position is one holder's stake in the current cycle.
type Position struct {
	Holder      string          `json:"holder"`
	Units       int64           `json:"units"`
	RolledUnits int64           `json:"rolledUnits"`
	CouponOwed  decimal.Decimal `json:"couponOwed"`
	OptionOwed  decimal.Decimal `json:"optionPayoutOwed"`
}

// Positions returns every current-cycle holder with a non-zero balance or an
// outstanding entitlement, in first-seen order.
func (l *Ledger) Positions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Position
	for _, addr := range l.positions.Holders(l.currentCycle) {
		p := Position{
			Holder: addr,
			Units:  l.positions.BalanceOf(addr, l.currentCycle),
		}
		if h, ok := l.holders[addr]; ok {
			p.RolledUnits = h.RolledUnits
			p.CouponOwed = h.Coupon
			p.OptionOwed = h.OptionPayout
		} else {
			p.CouponOwed = decimal.Zero
			p.OptionOwed = decimal.Zero
		}
		if p.Units == 0 && p.CouponOwed.IsZero() && p.OptionOwed.IsZero() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Totals returns the lifetime settlement-asset flow through the product:
// everything pulled in and everything paid out. The difference equals the
// product's on-hand balance when conservation holds.
func (l *Ledger) Totals() (in, out decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalIn, l.totalOut
}

// LotSize returns the product's immutable lot size.
func (l *Ledger) LotSize() decimal.Decimal { return l.lot }

// CycleSupply returns the position-token supply of the current cycle class.
func (l *Ledger) CycleSupply() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions.TotalSupply(l.currentCycle)
}

// DeployedYield returns the amount currently deployed to a yield venue.
func (l *Ledger) DeployedYield() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deployedYield
}

// OwedLiabilities sums every holder's outstanding coupon and option-payout
// balance.
func (l *Ledger) OwedLiabilities() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, h := range l.holders {
		total = total.Add(h.Coupon).Add(h.OptionPayout)
	}
	return total
}
