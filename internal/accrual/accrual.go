// Package accrual implements the coupon and settlement arithmetic: weekly
// coupon accrual, pro-rata option payout, and capacity distribution splits.
// All math is integer in the settlement asset's smallest unit; division
// truncates toward zero and the dust is forfeited.
package accrual

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/domain"
)

// HolderBalance is a holder's current unit count in a token class.
type HolderBalance struct {
	Address string
	Units   int64
}

// Credit is an amount owed to a holder, produced by an accrual plan.
type Credit struct {
	Address string
	Amount  decimal.Decimal
}

// Coupon returns the coupon owed for one accrual period:
// units × lot × bps / 10000, truncated.
func Coupon(units int64, lot decimal.Decimal, bps int64) decimal.Decimal {
	notional := decimal.NewFromInt(units).Mul(lot)
	return domain.BpsShare(notional, bps)
}

// PlanCoupon computes one additive coupon accrual against the current
// balance snapshot. Holders with zero balance or zero accrued amount are
// omitted.
func PlanCoupon(holders []HolderBalance, lot decimal.Decimal, bps int64) []Credit {
	credits := lo.FilterMap(holders, func(h HolderBalance, _ int) (Credit, bool) {
		if h.Units <= 0 {
			return Credit{}, false
		}
		amount := Coupon(h.Units, lot, bps)
		if amount.IsZero() {
			return Credit{}, false
		}
		return Credit{Address: h.Address, Amount: amount}, true
	})
	return credits
}

// PlanProRata splits profit across holders in proportion to their balance
// against the class supply: profit × units / supply, truncated per holder.
func PlanProRata(holders []HolderBalance, supply int64, profit decimal.Decimal) []Credit {
	if supply <= 0 || profit.Sign() <= 0 {
		return nil
	}
	supplyDec := decimal.NewFromInt(supply)
	credits := lo.FilterMap(holders, func(h HolderBalance, _ int) (Credit, bool) {
		if h.Units <= 0 {
			return Credit{}, false
		}
		share := domain.TruncDiv(profit.Mul(decimal.NewFromInt(h.Units)), supplyDec)
		if share.IsZero() {
			return Credit{}, false
		}
		return Credit{Address: h.Address, Amount: share}, true
	})
	return credits
}

// SplitCapacity divides a cycle's capacity into the yield-venue portion
// (capacity × yieldBps / 10000, truncated) and the option-linked remainder.
func SplitCapacity(capacity decimal.Decimal, yieldBps int64) (yieldPart, optionPart decimal.Decimal) {
	yieldPart = domain.BpsShare(capacity, yieldBps)
	optionPart = capacity.Sub(yieldPart)
	return yieldPart, optionPart
}

// Total sums the amounts of a credit plan.
func Total(credits []Credit) decimal.Decimal {
	return lo.Reduce(credits, func(acc decimal.Decimal, c Credit, _ int) decimal.Decimal {
		return acc.Add(c.Amount)
	}, decimal.Zero)
}
