package domain

import "github.com/shopspring/decimal"

// BpsDenominator is the basis-point denominator for coupon and yield rates.
const BpsDenominator = 10000

// All settlement amounts are integer counts of the asset's smallest unit.
// Division truncates toward zero; residual dust is forfeited.

// TruncDiv returns a/b truncated toward zero, or zero when b is zero.
func TruncDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	q, _ := a.QuoRem(b, 0)
	return q
}

// BpsShare returns amount × bps / 10000, truncated toward zero.
func BpsShare(amount decimal.Decimal, bps int64) decimal.Decimal {
	return TruncDiv(amount.Mul(decimal.NewFromInt(bps)), decimal.NewFromInt(BpsDenominator))
}

// IsWholeLots reports whether amount is a positive exact multiple of lot.
func IsWholeLots(amount, lot decimal.Decimal) bool {
	if lot.IsZero() || amount.Sign() <= 0 {
		return false
	}
	_, rem := amount.QuoRem(lot, 0)
	return rem.IsZero()
}

// Lots converts an already lot-aligned amount into a whole unit count.
func Lots(amount, lot decimal.Decimal) int64 {
	return TruncDiv(amount, lot).IntPart()
}
