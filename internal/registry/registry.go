// Package registry creates and resolves product ledgers by unique name.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hedgeline/issuance/internal/domain"
	"github.com/hedgeline/issuance/internal/product"
)

// Recorder receives registry events.
type Recorder interface {
	Record(ctx context.Context, e domain.Event)
}

// Registry maps product name to ledger and enforces name uniqueness.
type Registry struct {
	mu        sync.RWMutex
	settle    product.SettlementAsset
	positions product.PositionLedger
	recorder  Recorder
	products  map[string]*product.Ledger
}

// NewRegistry creates a registry bound to a settlement asset and position
// ledger shared by all products it creates.
func NewRegistry(settle product.SettlementAsset, positions product.PositionLedger, recorder Recorder) *Registry {
	if settle == nil {
		panic("registry.NewRegistry: settle is nil")
	}
	if positions == nil {
		panic("registry.NewRegistry: positions is nil")
	}
	return &Registry{
		settle:    settle,
		positions: positions,
		recorder:  recorder,
		products:  make(map[string]*product.Ledger),
	}
}

// CreateProduct creates a new product ledger under a unique name.
func (r *Registry) CreateProduct(ctx context.Context, cfg product.Config) (*product.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[cfg.Name]; exists {
		return nil, domain.ErrProductExists
	}

	led, err := product.NewLedger(cfg, r.settle, r.positions, r.recorder)
	if err != nil {
		return nil, fmt.Errorf("creating product %s: %w", cfg.Name, err)
	}
	r.products[cfg.Name] = led

	if r.recorder != nil {
		r.recorder.Record(ctx, domain.NewEvent(cfg.Name, domain.EventProductCreated, map[string]any{
			"underlying":  cfg.Underlying,
			"maxCapacity": cfg.MaxCapacity,
			"manager":     cfg.Manager,
		}))
	}
	return led, nil
}

// GetProduct resolves a product by name.
func (r *Registry) GetProduct(name string) (*product.Ledger, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	led, ok := r.products[name]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return led, nil
}

// NumProducts returns the number of registered products.
func (r *Registry) NumProducts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}

// Names returns all product names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.products))
	for name := range r.products {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered ledger in name order.
func (r *Registry) All() []*product.Ledger {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.products))
	for name := range r.products {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*product.Ledger, 0, len(names))
	for _, name := range names {
		out = append(out, r.products[name])
	}
	return out
}

// SetIssuanceCycle updates a product's cycle configuration by name.
func (r *Registry) SetIssuanceCycle(ctx context.Context, caller, name string, cycle domain.IssuanceCycle) error {
	led, err := r.GetProduct(name)
	if err != nil {
		return err
	}
	return led.SetIssuanceCycle(ctx, caller, cycle)
}

// AccrueIssued runs one weekly coupon accrual on every issued product.
// Products in other states are skipped; per-product failures abort the batch.
func (r *Registry) AccrueIssued(ctx context.Context, operator string) error {
	for _, led := range r.All() {
		if led.Status() != domain.StatusIssued {
			continue
		}
		if err := led.WeeklyCoupon(ctx, operator); err != nil {
			return fmt.Errorf("accruing %s: %w", led.Name(), err)
		}
	}
	return nil
}
