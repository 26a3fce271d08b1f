// Package market implements the secondary marketplace: escrow-based listing
// and sale of position-token balances against allow-listed payment assets,
// with a platform fee skimmed to a fee recipient.
package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/domain"
)

// FeeDenominator is the fee denominator: a platform fee of 5 is 0.5%.
const FeeDenominator = 1000

// CustodyAccount is the marketplace's escrow account on the position ledger.
const CustodyAccount = "marketplace"

// PositionLedger is the token ledger the marketplace escrows balances on.
type PositionLedger interface {
	BalanceOf(holder string, classID int64) int64
	TransferFrom(operator, from, to string, classID, qty int64) error
	Transfer(from, to string, classID, qty int64) error
	IsApprovedForAll(owner, operator string) bool
}

// PaymentAsset is the settlement interface of an allow-listed payment asset.
type PaymentAsset interface {
	TransferFrom(ctx context.Context, spender, from, to string, amount decimal.Decimal) error
}

// Product is the product-side view the marketplace validates listings
// against.
type Product interface {
	CurrentCycle() int64
	TransferableUnits(holder string) int64
	Paused() bool
}

// PriceSource resolves informational reference prices; never used for
// settlement.
type PriceSource interface {
	ReferencePrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Recorder receives marketplace events.
type Recorder interface {
	Record(ctx context.Context, e domain.Event)
}

// Marketplace holds the listing table and fee configuration.
type Marketplace struct {
	mu sync.Mutex

	positions    PositionLedger
	assets       map[string]PaymentAsset
	prices       PriceSource
	recorder     Recorder
	feeRecipient string
	feeRate      int64

	nextID   int64
	listings map[int64]*domain.Listing

	now func() time.Time
}

// NewMarketplace creates a marketplace with the given fee configuration.
// feeRate uses the /1000 denominator.
func NewMarketplace(positions PositionLedger, feeRecipient string, feeRate int64, prices PriceSource, recorder Recorder) *Marketplace {
	if positions == nil {
		panic("market.NewMarketplace: positions is nil")
	}
	return &Marketplace{
		positions:    positions,
		assets:       make(map[string]PaymentAsset),
		prices:       prices,
		recorder:     recorder,
		feeRecipient: feeRecipient,
		feeRate:      feeRate,
		nextID:       1,
		listings:     make(map[int64]*domain.Listing),
		now:          time.Now,
	}
}

// AllowAsset adds a payment asset to the allow-list.
func (m *Marketplace) AllowAsset(symbol string, a PaymentAsset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[symbol] = a
}

type guardKey struct{}

// enter serializes an entry point. The returned context marks the call in
// progress, so a nested call arriving through a payment-asset callback fails
// with ErrReentrantCall instead of deadlocking on the mutex.
func (m *Marketplace) enter(ctx context.Context) (context.Context, error) {
	if g, ok := ctx.Value(guardKey{}).(*Marketplace); ok && g == m {
		return nil, domain.ErrReentrantCall
	}
	m.mu.Lock()
	return context.WithValue(ctx, guardKey{}, m), nil
}

// ListItem escrows quantity units of the product's current cycle class into
// marketplace custody and records a new listing.
func (m *Marketplace) ListItem(ctx context.Context, seller string, p Product, productName string, cycleID, quantity int64, payAsset string, unitPrice decimal.Decimal, startAt time.Time) (int64, error) {
	ctx, err := m.enter(ctx)
	if err != nil {
		return 0, err
	}
	defer m.mu.Unlock()

	if p.Paused() {
		return 0, domain.ErrPaused
	}
	if cycleID != p.CurrentCycle() {
		return 0, domain.ErrStatusInvalid
	}
	if quantity <= 0 || unitPrice.Sign() <= 0 {
		return 0, domain.ErrZeroAmount
	}
	if _, ok := m.assets[payAsset]; !ok {
		return 0, domain.ErrAssetNotAllowed
	}
	if m.positions.BalanceOf(seller, cycleID) < quantity {
		return 0, domain.ErrInsufficient
	}
	if p.TransferableUnits(seller) < quantity {
		return 0, domain.ErrUnitsLocked
	}
	if !m.positions.IsApprovedForAll(seller, CustodyAccount) {
		return 0, domain.ErrNotApprovedForAll
	}

	if err := m.positions.TransferFrom(CustodyAccount, seller, CustodyAccount, cycleID, quantity); err != nil {
		return 0, err
	}

	id := m.nextID
	m.nextID++
	m.listings[id] = &domain.Listing{
		ID:        id,
		Seller:    seller,
		Product:   productName,
		CycleID:   cycleID,
		Quantity:  quantity,
		PayAsset:  payAsset,
		UnitPrice: unitPrice,
		StartAt:   startAt,
		CreatedAt: m.now().UTC(),
	}

	m.record(ctx, productName, domain.EventListingCreated, map[string]any{
		"listingId": id,
		"seller":    seller,
		"cycleId":   cycleID,
		"quantity":  quantity,
		"payAsset":  payAsset,
		"unitPrice": unitPrice,
	})
	return id, nil
}

// UpdateListing changes the price and payment asset of a live listing.
// Seller only.
func (m *Marketplace) UpdateListing(ctx context.Context, caller string, listingID int64, payAsset string, unitPrice decimal.Decimal) error {
	ctx, err := m.enter(ctx)
	if err != nil {
		return err
	}
	defer m.mu.Unlock()

	l, err := m.live(listingID)
	if err != nil {
		return err
	}
	if l.Seller != caller {
		return domain.ErrNotSeller
	}
	if _, ok := m.assets[payAsset]; !ok {
		return domain.ErrAssetNotAllowed
	}
	if unitPrice.Sign() <= 0 {
		return domain.ErrZeroAmount
	}

	l.PayAsset = payAsset
	l.UnitPrice = unitPrice

	m.record(ctx, l.Product, domain.EventListingUpdated, map[string]any{
		"listingId": listingID,
		"payAsset":  payAsset,
		"unitPrice": unitPrice,
	})
	return nil
}

// CancelListing returns the escrowed units to the seller and tombstones the
// listing.
func (m *Marketplace) CancelListing(ctx context.Context, caller string, listingID int64) error {
	ctx, err := m.enter(ctx)
	if err != nil {
		return err
	}
	defer m.mu.Unlock()

	l, err := m.live(listingID)
	if err != nil {
		return err
	}
	if l.Seller != caller {
		return domain.ErrNotSeller
	}

	if err := m.positions.Transfer(CustodyAccount, l.Seller, l.CycleID, l.Quantity); err != nil {
		return err
	}
	m.tombstone(listingID)

	m.record(ctx, l.Product, domain.EventListingCancelled, map[string]any{"listingId": listingID})
	return nil
}

// BuyItem consumes a listing atomically: pulls the payment from the buyer,
// splits the platform fee off to the fee recipient, hands the escrowed units
// to the buyer, and tombstones the listing. The settlement price is the list
// price; reference prices are informational only.
func (m *Marketplace) BuyItem(ctx context.Context, buyer string, listingID int64, payAsset, expectedSeller string) error {
	ctx, err := m.enter(ctx)
	if err != nil {
		return err
	}
	defer m.mu.Unlock()

	l, err := m.live(listingID)
	if err != nil {
		return err
	}
	if m.now().Before(l.StartAt) {
		return domain.ErrListingNotLive
	}
	if buyer == l.Seller {
		return domain.ErrSelfPurchase
	}
	if payAsset != l.PayAsset {
		return domain.ErrAssetMismatch
	}
	if expectedSeller != l.Seller {
		return domain.ErrSellerMismatch
	}

	pay := m.assets[l.PayAsset]
	total := l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
	fee := domain.TruncDiv(total.Mul(decimal.NewFromInt(m.feeRate)), decimal.NewFromInt(FeeDenominator))

	if fee.Sign() > 0 {
		if err := pay.TransferFrom(ctx, CustodyAccount, buyer, m.feeRecipient, fee); err != nil {
			return err
		}
	}
	if err := pay.TransferFrom(ctx, CustodyAccount, buyer, l.Seller, total.Sub(fee)); err != nil {
		return err
	}
	if err := m.positions.Transfer(CustodyAccount, buyer, l.CycleID, l.Quantity); err != nil {
		return err
	}
	m.tombstone(listingID)

	m.record(ctx, l.Product, domain.EventListingSold, map[string]any{
		"listingId": listingID,
		"seller":    l.Seller,
		"buyer":     buyer,
		"quantity":  l.Quantity,
		"total":     total,
		"fee":       fee,
	})
	return nil
}

// Listing returns a copy of the listing record. A tombstoned listing reads
// back with ID zero.
func (m *Marketplace) Listing(listingID int64) (domain.Listing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[listingID]
	if !ok {
		return domain.Listing{}, false
	}
	return *l, true
}

// OpenListings returns every live listing ordered by id.
func (m *Marketplace) OpenListings() []domain.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := lo.FilterMap(lo.Values(m.listings), func(l *domain.Listing, _ int) (domain.Listing, bool) {
		return *l, l.ID != 0
	})
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })
	return live
}

// ReferencePrice resolves the informational reference price for a symbol.
func (m *Marketplace) ReferencePrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if m.prices == nil {
		return decimal.Zero, fmt.Errorf("no price source configured")
	}
	return m.prices.ReferencePrice(ctx, symbol)
}

// live resolves a listing that has not been consumed or cancelled.
func (m *Marketplace) live(listingID int64) (*domain.Listing, error) {
	l, ok := m.listings[listingID]
	if !ok || l.ID == 0 {
		return nil, domain.ErrListingNotFound
	}
	return l, nil
}

// tombstone zeroes the listing id in place so reuse of a consumed id is
// detectable.
func (m *Marketplace) tombstone(listingID int64) {
	m.listings[listingID] = &domain.Listing{}
}

func (m *Marketplace) record(ctx context.Context, productName string, kind domain.EventKind, attrs map[string]any) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(ctx, domain.NewEvent(productName, kind, attrs))
}
