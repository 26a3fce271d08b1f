// Package position implements the fungible, multi-class position-token
// ledger. One class exists per issuance cycle; a holder's current balance in
// a class determines coupon, option, and principal entitlement.
package position

import (
	"sync"

	"github.com/hedgeline/issuance/internal/domain"
)

type class struct {
	supply   int64
	balances map[string]int64
	// Every address ever associated with the class, in insertion order.
	// Never pruned on zero balance; bounds accrual iteration.
	holders []string
	seen    map[string]bool
}

func newClass() *class {
	return &class{
		balances: make(map[string]int64),
		seen:     make(map[string]bool),
	}
}

func (c *class) touch(addr string) {
	if !c.seen[addr] {
		c.seen[addr] = true
		c.holders = append(c.holders, addr)
	}
}

// Ledger is an in-memory position-token ledger with marketplace approval
// semantics. Class ids are globally monotonic and never reused.
type Ledger struct {
	mu        sync.RWMutex
	nextClass int64
	classes   map[int64]*class
	approvals map[string]map[string]bool
}

// NewLedger creates an empty position ledger.
func NewLedger() *Ledger {
	return &Ledger{
		classes:   make(map[int64]*class),
		approvals: make(map[string]map[string]bool),
	}
}

// NewClass allocates a fresh token class id.
func (l *Ledger) NewClass() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextClass
	l.nextClass++
	l.classes[id] = newClass()
	return id
}

// Mint credits qty units of classID to the holder.
func (l *Ledger) Mint(to string, classID, qty int64) error {
	if qty <= 0 {
		return domain.ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.classes[classID]
	if !ok {
		c = newClass()
		l.classes[classID] = c
	}
	c.touch(to)
	c.balances[to] += qty
	c.supply += qty
	return nil
}

// Burn removes qty units of classID from the holder.
func (l *Ledger) Burn(from string, classID, qty int64) error {
	if qty <= 0 {
		return domain.ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.classes[classID]
	if !ok || c.balances[from] < qty {
		return domain.ErrInsufficient
	}
	c.balances[from] -= qty
	c.supply -= qty
	return nil
}

// Transfer moves qty units between holders. The caller is trusted to be the
// owner; external callers go through TransferFrom.
func (l *Ledger) Transfer(from, to string, classID, qty int64) error {
	if qty <= 0 {
		return domain.ErrZeroAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.classes[classID]
	if !ok || c.balances[from] < qty {
		return domain.ErrInsufficient
	}
	c.balances[from] -= qty
	c.touch(to)
	c.balances[to] += qty
	return nil
}

// TransferFrom moves qty units on behalf of operator, which must be the owner
// or approved for all of the owner's classes.
func (l *Ledger) TransferFrom(operator, from, to string, classID, qty int64) error {
	if operator != from && !l.IsApprovedForAll(from, operator) {
		return domain.ErrNotApprovedForAll
	}
	return l.Transfer(from, to, classID, qty)
}

// SetApprovalForAll grants or revokes operator rights over all of the owner's
// classes.
func (l *Ledger) SetApprovalForAll(owner, operator string, approved bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ops, ok := l.approvals[owner]
	if !ok {
		ops = make(map[string]bool)
		l.approvals[owner] = ops
	}
	ops[operator] = approved
}

// IsApprovedForAll reports whether operator may move the owner's balances.
func (l *Ledger) IsApprovedForAll(owner, operator string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.approvals[owner][operator]
}

// BalanceOf returns the holder's balance in a class.
func (l *Ledger) BalanceOf(holder string, classID int64) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.classes[classID]
	if !ok {
		return 0
	}
	return c.balances[holder]
}

// TotalSupply returns the outstanding unit count of a class, the single
// source of truth for cycle entitlement.
func (l *Ledger) TotalSupply(classID int64) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.classes[classID]
	if !ok {
		return 0
	}
	return c.supply
}

// Holders returns every address ever associated with the class, in first-seen
// order. Zero-balance addresses are included.
func (l *Ledger) Holders(classID int64) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.classes[classID]
	if !ok {
		return nil
	}
	out := make([]string, len(c.holders))
	copy(out, c.holders)
	return out
}
