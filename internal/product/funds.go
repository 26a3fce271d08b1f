package product

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/domain"
)

// Deposit pulls settlement funds from the caller (or consumes owed
// option/coupon balance when topUp is set) and mints current-cycle position
// units at one unit per lot.
func (l *Ledger) Deposit(ctx context.Context, caller string, amount decimal.Decimal, topUp bool) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if l.paused {
		return domain.ErrPaused
	}
	if l.status != domain.StatusFundAccepting {
		return domain.ErrNotAccepting
	}
	if amount.Sign() <= 0 {
		return domain.ErrZeroAmount
	}
	if !domain.IsWholeLots(amount, l.lot) {
		return domain.ErrNotWholeLots
	}
	if l.capacity.Add(amount).GreaterThan(l.maxCapacity) {
		return domain.ErrCapacityFull
	}

	lots := domain.Lots(amount, l.lot)

	if topUp {
		if err := l.consumeOwed(caller, amount); err != nil {
			return err
		}
	} else {
		if err := l.asset.TransferFrom(ctx, l.name, caller, l.name, amount); err != nil {
			return fmt.Errorf("pulling deposit from %s: %w", caller, err)
		}
		l.totalIn = l.totalIn.Add(amount)
	}

	if err := l.positions.Mint(caller, l.currentCycle, lots); err != nil {
		return fmt.Errorf("minting position units: %w", err)
	}
	l.capacity = l.capacity.Add(amount)
	if !l.everDeposited[caller] {
		l.everDeposited[caller] = true
		l.investors++
	}

	l.record(ctx, domain.EventDeposit, map[string]any{
		"depositor": caller,
		"amount":    amount,
		"cycleId":   l.currentCycle,
		"lots":      lots,
	})
	return nil
}

// consumeOwed debits a top-up from the caller's owed balances, option payout
// first, then coupon.
func (l *Ledger) consumeOwed(caller string, amount decimal.Decimal) error {
	h, ok := l.holders[caller]
	if !ok || h.OptionPayout.Add(h.Coupon).LessThan(amount) {
		return domain.ErrInsufficient
	}

	fromOption := decimal.Min(h.OptionPayout, amount)
	h.OptionPayout = h.OptionPayout.Sub(fromOption)
	h.Coupon = h.Coupon.Sub(amount.Sub(fromOption))
	h.ToppedUp = true
	return nil
}

// WithdrawPrincipal pays out matured principal during the next accepting
// window. Entitlement is the smaller of the previous-cycle balance and the
// rolled units still held; both sides are burned so the claim cannot be
// double-spent.
func (l *Ledger) WithdrawPrincipal(ctx context.Context, caller string) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if l.paused {
		return domain.ErrPaused
	}
	if l.status != domain.StatusFundAccepting {
		return domain.ErrNotAccepting
	}

	var prevBal int64
	if l.prevCycle >= 0 {
		prevBal = l.positions.BalanceOf(caller, l.prevCycle)
	}
	h, ok := l.holders[caller]
	if !ok {
		return domain.ErrNoPrincipal
	}
	// The claim follows the units: rolled units transferred away forfeit
	// their share of the prior principal to whoever holds them at the next
	// roll.
	held := min(h.RolledUnits, l.positions.BalanceOf(caller, l.currentCycle))
	units := min(prevBal, held)
	if units <= 0 {
		return domain.ErrNoPrincipal
	}

	principal := l.lot.Mul(decimal.NewFromInt(units))
	if err := l.asset.Transfer(ctx, l.name, caller, principal); err != nil {
		return fmt.Errorf("paying principal to %s: %w", caller, err)
	}

	if err := l.positions.Burn(caller, l.prevCycle, units); err != nil {
		return err
	}
	if err := l.positions.Burn(caller, l.currentCycle, units); err != nil {
		return err
	}
	h.RolledUnits -= units
	h.PrincipalWithdrawn = true
	l.capacity = l.capacity.Sub(principal)
	l.totalOut = l.totalOut.Add(principal)

	l.record(ctx, domain.EventWithdrawPrincipal, map[string]any{
		"user":        caller,
		"amount":      principal,
		"prevCycleId": l.prevCycle,
		"units":       units,
	})
	return nil
}

// WithdrawCoupon pays out the caller's full owed coupon balance and zeroes
// it.
func (l *Ledger) WithdrawCoupon(ctx context.Context, caller string) error {
	return l.withdrawOwed(ctx, caller, domain.EventWithdrawCoupon)
}

// WithdrawOption pays out the caller's full owed option-payout balance and
// zeroes it.
func (l *Ledger) WithdrawOption(ctx context.Context, caller string) error {
	return l.withdrawOwed(ctx, caller, domain.EventWithdrawOption)
}

func (l *Ledger) withdrawOwed(ctx context.Context, caller string, kind domain.EventKind) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if l.paused {
		return domain.ErrPaused
	}

	h, ok := l.holders[caller]
	if !ok {
		return domain.ErrInsufficient
	}
	owed := h.Coupon
	if kind == domain.EventWithdrawOption {
		owed = h.OptionPayout
	}
	if owed.Sign() <= 0 {
		return domain.ErrInsufficient
	}

	onHand, err := l.asset.BalanceOf(ctx, l.name)
	if err != nil {
		return fmt.Errorf("reading product balance: %w", err)
	}
	if onHand.LessThan(owed) {
		return domain.ErrInsufficient
	}

	if err := l.asset.Transfer(ctx, l.name, caller, owed); err != nil {
		return fmt.Errorf("paying %s to %s: %w", kind, caller, err)
	}

	if kind == domain.EventWithdrawOption {
		h.OptionPayout = decimal.Zero
	} else {
		h.Coupon = decimal.Zero
	}
	l.totalOut = l.totalOut.Add(owed)

	l.record(ctx, kind, map[string]any{"user": caller, "amount": owed})
	return nil
}
