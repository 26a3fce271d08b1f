package product

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/accrual"
	"github.com/hedgeline/issuance/internal/domain"
)

// WeeklyCoupon accrues one coupon period for every current-cycle holder
// against their balance at this instant. Purely additive; repeat calls
// compound nothing and a transfer between calls re-splits future accrual
// immediately.
func (l *Ledger) WeeklyCoupon(ctx context.Context, caller string) error {
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

	credits := accrual.PlanCoupon(l.classBalances(l.currentCycle), l.lot, l.cycle.CouponBps)
	for _, c := range credits {
		h := l.holder(c.Address)
		h.Coupon = h.Coupon.Add(c.Amount)
		l.record(ctx, domain.EventWeeklyCoupon, map[string]any{
			"holder":  c.Address,
			"amount":  c.Amount,
			"cycleId": l.currentCycle,
		})
	}
	return nil
}

// AccrueHolder is the granular alternative to WeeklyCoupon: it accrues one
// coupon period for a single holder, so a huge holder set never turns the
// batch into an all-or-nothing failure.
func (l *Ledger) AccrueHolder(ctx context.Context, caller, holder string) error {
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

	units := l.positions.BalanceOf(holder, l.currentCycle)
	amount := accrual.Coupon(units, l.lot, l.cycle.CouponBps)
	if amount.IsZero() {
		return nil
	}

	h := l.holder(holder)
	h.Coupon = h.Coupon.Add(amount)
	l.record(ctx, domain.EventWeeklyCoupon, map[string]any{
		"holder":  holder,
		"amount":  amount,
		"cycleId": l.currentCycle,
	})
	return nil
}

// DistributeFunds routes the cycle's capacity out: the yield portion to an
// external venue, the remainder to the counterparty wallet. One shot per
// cycle.
func (l *Ledger) DistributeFunds(ctx context.Context, caller string, yieldBps int64, venue YieldVenue) error {
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
	if l.distributed {
		return domain.ErrDistributed
	}
	if venue == nil {
		return fmt.Errorf("yield venue is required")
	}

	yieldPart, optionPart := accrual.SplitCapacity(l.capacity, yieldBps)

	var receipt decimal.Decimal
	if yieldPart.Sign() > 0 {
		r, err := venue.Deposit(ctx, l.name, yieldPart)
		if err != nil {
			return fmt.Errorf("depositing to yield venue: %w", err)
		}
		receipt = r
		l.totalOut = l.totalOut.Add(yieldPart)
	}
	if optionPart.Sign() > 0 {
		if err := l.asset.Transfer(ctx, l.name, l.counterparty, optionPart); err != nil {
			return fmt.Errorf("forwarding option portion: %w", err)
		}
		l.totalOut = l.totalOut.Add(optionPart)
	}

	l.distributed = true
	l.venue = venue
	l.venueReceipt = receipt
	l.deployedYield = yieldPart

	l.record(ctx, domain.EventDistributeFunds, map[string]any{
		"yieldAmount":  yieldPart,
		"optionAmount": optionPart,
	})
	return nil
}

// RedeemYield withdraws the full venue position back into the product. The
// returned amount reflects venue yield or loss and is trusted as-is.
func (l *Ledger) RedeemYield(ctx context.Context, caller string) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if !l.distributed {
		return domain.ErrNotDistributed
	}

	amount, err := l.venue.Withdraw(ctx, l.name, l.venueReceipt)
	if err != nil {
		return fmt.Errorf("withdrawing from yield venue: %w", err)
	}

	l.totalIn = l.totalIn.Add(amount)
	l.distributed = false
	l.venue = nil
	l.venueReceipt = decimal.Zero
	l.deployedYield = decimal.Zero

	l.record(ctx, domain.EventRedeemYield, map[string]any{"amount": amount})
	return nil
}

// RedeemOptionPayout pulls settled option profit from the counterparty
// wallet into the product, to be distributed pro-rata on the next
// FundAccept.
func (l *Ledger) RedeemOptionPayout(ctx context.Context, caller string, amount decimal.Decimal) error {
	ctx, err := l.enter(ctx)
	if err != nil {
		return err
	}
	defer l.mu.Unlock()

	if caller != l.counterparty {
		return domain.ErrUnauthorized
	}
	if amount.Sign() <= 0 {
		return domain.ErrZeroAmount
	}

	if err := l.asset.TransferFrom(ctx, l.name, caller, l.name, amount); err != nil {
		return fmt.Errorf("pulling option payout: %w", err)
	}

	l.optionProfit = l.optionProfit.Add(amount)
	l.totalIn = l.totalIn.Add(amount)

	l.record(ctx, domain.EventRedeemOptionPayout, map[string]any{"amount": amount})
	return nil
}
