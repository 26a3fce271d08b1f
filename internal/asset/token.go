// Package asset provides the settlement-asset ledger used by products and
// the marketplace: pull-based transfers with allowance semantics over
// integer smallest-unit amounts.
package asset

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/domain"
)

// Token is an in-memory settlement asset. A 6-decimal stable asset and an
// 18-decimal native coin are both represented here; only the lot
// denomination on the product differs.
type Token struct {
	mu         sync.Mutex
	symbol     string
	decimals   int
	balances   map[string]decimal.Decimal
	allowances map[string]map[string]decimal.Decimal
}

// NewToken creates a settlement asset with the given symbol and decimals.
func NewToken(symbol string, decimals int) *Token {
	return &Token{
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[string]decimal.Decimal),
		allowances: make(map[string]map[string]decimal.Decimal),
	}
}

// Symbol returns the asset symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the asset's decimal places.
func (t *Token) Decimals() int { return t.decimals }

// Mint credits freshly issued units to an account.
func (t *Token) Mint(to string, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[to] = t.balance(to).Add(amount)
}

// Approve sets the spender's allowance over the owner's balance.
func (t *Token) Approve(owner, spender string, amount decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	spenders, ok := t.allowances[owner]
	if !ok {
		spenders = make(map[string]decimal.Decimal)
		t.allowances[owner] = spenders
	}
	spenders[spender] = amount
}

// Allowance returns the spender's remaining allowance over the owner's funds.
func (t *Token) Allowance(owner, spender string) decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner][spender]
}

// Transfer moves funds directly from the owner's balance. The caller is
// trusted to act for the from account.
func (t *Token) Transfer(_ context.Context, from, to string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return domain.ErrZeroAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// TransferFrom pulls funds from the owner's balance on behalf of the
// spender, consuming allowance unless the spender is the owner.
func (t *Token) TransferFrom(_ context.Context, spender, from, to string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return domain.ErrZeroAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if spender != from {
		allowed := t.allowances[from][spender]
		if allowed.LessThan(amount) {
			return domain.ErrInsufficient
		}
		t.allowances[from][spender] = allowed.Sub(amount)
	}
	return t.move(from, to, amount)
}

// BalanceOf returns an account's balance.
func (t *Token) BalanceOf(_ context.Context, account string) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance(account), nil
}

func (t *Token) balance(account string) decimal.Decimal {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return decimal.Zero
}

func (t *Token) move(from, to string, amount decimal.Decimal) error {
	if t.balance(from).LessThan(amount) {
		return domain.ErrInsufficient
	}
	t.balances[from] = t.balance(from).Sub(amount)
	t.balances[to] = t.balance(to).Add(amount)
	return nil
}
