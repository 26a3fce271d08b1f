// Package yield provides the external yield-venue integration surface and a
// simple in-memory venue for the simulation mode and tests.
package yield

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/domain"
)

// Asset is the settlement-asset surface a venue moves funds over.
type Asset interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
	Mint(to string, amount decimal.Decimal)
}

// MemoryVenue is a lending-pool stand-in: deposits earn a fixed rate,
// realized in full on withdrawal. Receipt units are 1:1 with deposited
// principal.
type MemoryVenue struct {
	mu       sync.Mutex
	asset    Asset
	account  string
	yieldBps int64
	deposits map[string]decimal.Decimal
}

// NewMemoryVenue creates a venue holding funds under the given account,
// paying yieldBps on withdrawal.
func NewMemoryVenue(a Asset, account string, yieldBps int64) *MemoryVenue {
	if a == nil {
		panic("yield.NewMemoryVenue: asset is nil")
	}
	return &MemoryVenue{
		asset:    a,
		account:  account,
		yieldBps: yieldBps,
		deposits: make(map[string]decimal.Decimal),
	}
}

// Deposit pulls principal from the depositor and returns receipt units.
func (v *MemoryVenue) Deposit(ctx context.Context, from string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, domain.ErrZeroAmount
	}
	if err := v.asset.Transfer(ctx, from, v.account, amount); err != nil {
		return decimal.Zero, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.deposits[from] = v.depositOf(from).Add(amount)
	return amount, nil
}

// Withdraw redeems receipt units plus the accrued yield back to the
// recipient. The yield is minted by the venue, standing in for pool
// interest.
func (v *MemoryVenue) Withdraw(ctx context.Context, to string, receipt decimal.Decimal) (decimal.Decimal, error) {
	v.mu.Lock()
	if v.depositOf(to).LessThan(receipt) {
		v.mu.Unlock()
		return decimal.Zero, domain.ErrInsufficient
	}
	v.deposits[to] = v.depositOf(to).Sub(receipt)
	v.mu.Unlock()

	earned := domain.BpsShare(receipt, v.yieldBps)
	if earned.Sign() > 0 {
		v.asset.Mint(v.account, earned)
	}
	amount := receipt.Add(earned)
	if err := v.asset.Transfer(ctx, v.account, to, amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (v *MemoryVenue) depositOf(account string) decimal.Decimal {
	if d, ok := v.deposits[account]; ok {
		return d
	}
	return decimal.Zero
}
