package product

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/accrual"
	"github.com/hedgeline/issuance/internal/domain"
)

// FundAccept opens a deposit window. Allowed from Pending, FundLocked, or
// Mature. Coming from Mature it first distributes the settled option profit
// pro-rata across current-cycle holders and clears the accumulator.
func (l *Ledger) FundAccept(ctx context.Context, caller string) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.requireOperator(caller); err != nil {
		return err
	}
	switch l.status {
	case domain.StatusPending, domain.StatusFundLocked, domain.StatusMature:
	default:
		return domain.ErrStatusInvalid
	}

	if l.status == domain.StatusMature {
		l.creditOptionPayouts(ctx)
	}

	l.status = domain.StatusFundAccepting
	l.record(ctx, domain.EventFundAccept, map[string]any{"cycleId": l.currentCycle})
	return nil
}

func (l *Ledger) creditOptionPayouts(ctx context.Context) {
	supply := l.positions.TotalSupply(l.currentCycle)
	credits := accrual.PlanProRata(l.classBalances(l.currentCycle), supply, l.optionProfit)
	for _, c := range credits {
		h := l.holder(c.Address)
		h.OptionPayout = h.OptionPayout.Add(c.Amount)
		h.ToppedUp = false
		l.record(ctx, domain.EventOptionPayout, map[string]any{
			"holder": c.Address,
			"amount": c.Amount,
			"cycleId": l.currentCycle,
		})
	}
	// cleared entirely: per-holder truncation residue is forfeited
	l.optionProfit = decimal.Zero
}

// FundLock closes the deposit window. Allowed only from FundAccepting.
func (l *Ledger) FundLock(ctx context.Context, caller string) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if l.status != domain.StatusFundAccepting {
		return domain.ErrNotAccepting
	}

	l.status = domain.StatusFundLocked
	l.record(ctx, domain.EventFundLock, map[string]any{"cycleId": l.currentCycle})
	return nil
}

// Issuance starts a new cycle. Allowed only from FundLocked. It rotates the
// previous cycle id, assigns a fresh class, and rolls every funded holder's
// entitlement into it. Rolled units carry the unredeemed prior principal.
func (l *Ledger) Issuance(ctx context.Context, caller string) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if l.status != domain.StatusFundLocked {
		return domain.ErrNotLocked
	}

	// Burn stale balances of the retiring previous class: their principal
	// either left via withdrawal or rides forward as rolled units.
	if l.prevCycle >= 0 {
		for _, addr := range l.positions.Holders(l.prevCycle) {
			if bal := l.positions.BalanceOf(addr, l.prevCycle); bal > 0 {
				if err := l.positions.Burn(addr, l.prevCycle, bal); err != nil {
					return err
				}
			}
		}
	}

	funded := l.currentCycle
	next := l.positions.NewClass()
	for _, hb := range l.classBalances(funded) {
		if hb.Units <= 0 {
			continue
		}
		if err := l.positions.Mint(hb.Address, next, hb.Units); err != nil {
			return err
		}
		h := l.holder(hb.Address)
		h.RolledUnits = hb.Units
		h.PrincipalWithdrawn = false
	}

	l.prevCycle = funded
	l.currentCycle = next
	l.distributed = false
	l.status = domain.StatusIssued
	l.record(ctx, domain.EventIssuance, map[string]any{
		"prevCycleId": l.prevCycle,
		"cycleId":     l.currentCycle,
	})
	return nil
}

// Mature ends the issued period. Allowed only from Issued. Coupon and option
// accrual inputs for the cycle are frozen from here.
func (l *Ledger) Mature(ctx context.Context, caller string) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if l.status != domain.StatusIssued {
		return domain.ErrNotIssued
	}

	l.status = domain.StatusMature
	l.record(ctx, domain.EventMature, map[string]any{"cycleId": l.currentCycle})
	return nil
}

// Pause blocks deposit, withdrawal, and listing entry points. Lifecycle
// transitions stay available to the operator for recovery.
func (l *Ledger) Pause(ctx context.Context, caller string) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.requireOperator(caller); err != nil {
		return err
	}
	l.paused = true
	l.record(ctx, domain.EventPaused, nil)
	return nil
}

// Unpause clears the pause flag.
func (l *Ledger) Unpause(ctx context.Context, caller string) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.requireOperator(caller); err != nil {
		return err
	}
	l.paused = false
	l.record(ctx, domain.EventUnpaused, nil)
	return nil
}

// SetIssuanceCycle replaces the whole cycle configuration. Rejected while
// the product is issued.
func (l *Ledger) SetIssuanceCycle(ctx context.Context, caller string, cycle domain.IssuanceCycle) error {
	return l.updateCycle(ctx, caller, func(c *domain.IssuanceCycle) { *c = cycle })
}

// SetCouponRate updates the coupon rate in basis points.
func (l *Ledger) SetCouponRate(ctx context.Context, caller string, bps int64) error {
	return l.updateCycle(ctx, caller, func(c *domain.IssuanceCycle) { c.CouponBps = bps })
}

// SetStrikePrices updates the strike price levels.
func (l *Ledger) SetStrikePrices(ctx context.Context, caller string, s1, s2, s3, s4 int64) error {
	return l.updateCycle(ctx, caller, func(c *domain.IssuanceCycle) {
		c.StrikePrice1, c.StrikePrice2, c.StrikePrice3, c.StrikePrice4 = s1, s2, s3, s4
	})
}

// SetTargetReturns updates the optional target-return levels.
func (l *Ledger) SetTargetReturns(ctx context.Context, caller string, tr1, tr2 int64) error {
	return l.updateCycle(ctx, caller, func(c *domain.IssuanceCycle) {
		c.TargetReturn1, c.TargetReturn2 = tr1, tr2
	})
}

// SetTimeWindow updates the issuance and maturity timestamps.
func (l *Ledger) SetTimeWindow(ctx context.Context, caller string, cycle domain.IssuanceCycle) error {
	return l.updateCycle(ctx, caller, func(c *domain.IssuanceCycle) {
		c.IssuanceDate, c.MaturityDate = cycle.IssuanceDate, cycle.MaturityDate
	})
}

// SetURI updates the metadata URI.
func (l *Ledger) SetURI(ctx context.Context, caller, uri string) error {
	return l.updateCycle(ctx, caller, func(c *domain.IssuanceCycle) { c.URI = uri })
}

// SetAPYRange updates the displayed APY range.
func (l *Ledger) SetAPYRange(ctx context.Context, caller, apy string) error {
	return l.updateCycle(ctx, caller, func(c *domain.IssuanceCycle) { c.APYRange = apy })
}

func (l *Ledger) updateCycle(ctx context.Context, caller string, mutate func(*domain.IssuanceCycle)) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if l.status == domain.StatusIssued {
		return domain.ErrAlreadyIssued
	}

	mutate(&l.cycle)
	l.record(ctx, domain.EventIssuanceCycleSet, map[string]any{
		"couponBps": l.cycle.CouponBps,
		"uri":       l.cycle.URI,
	})
	return nil
}
