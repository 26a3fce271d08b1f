package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/domain"
	"github.com/hedgeline/issuance/internal/position"
)

// fakeProduct is a fixed product view for listing validation.
type fakeProduct struct {
	cycle        int64
	transferable map[string]int64
	paused       bool
}

func (p *fakeProduct) CurrentCycle() int64 { return p.cycle }
func (p *fakeProduct) TransferableUnits(holder string) int64 {
	return p.transferable[holder]
}
func (p *fakeProduct) Paused() bool { return p.paused }

// fakeAsset tracks pull-based payments per account.
type fakeAsset struct {
	balances map[string]decimal.Decimal
	failNext bool
}

func newFakeAsset() *fakeAsset {
	return &fakeAsset{balances: make(map[string]decimal.Decimal)}
}

func (a *fakeAsset) TransferFrom(_ context.Context, _, from, to string, amount decimal.Decimal) error {
	if a.failNext {
		a.failNext = false
		return domain.ErrInsufficient
	}
	a.balances[from] = a.bal(from).Sub(amount)
	a.balances[to] = a.bal(to).Add(amount)
	return nil
}

func (a *fakeAsset) bal(account string) decimal.Decimal {
	if b, ok := a.balances[account]; ok {
		return b
	}
	return decimal.Zero
}

type marketEnv struct {
	positions *position.Ledger
	usdc      *fakeAsset
	prod      *fakeProduct
	mkt       *Marketplace
	cycle     int64
}

func newMarketEnv(t *testing.T) *marketEnv {
	t.Helper()

	positions := position.NewLedger()
	cycle := positions.NewClass()
	positions.Mint("alice", cycle, 5)
	positions.SetApprovalForAll("alice", CustodyAccount, true)

	usdc := newFakeAsset()
	prod := &fakeProduct{cycle: cycle, transferable: map[string]int64{"alice": 5}}

	mkt := NewMarketplace(positions, "fees", 5, nil, nil)
	mkt.AllowAsset("USDC", usdc)

	return &marketEnv{positions: positions, usdc: usdc, prod: prod, mkt: mkt, cycle: cycle}
}

func (e *marketEnv) list(t *testing.T, qty int64, price int64) int64 {
	t.Helper()
	id, err := e.mkt.ListItem(context.Background(), "alice", e.prod, "BTC-PPN-01",
		e.cycle, qty, "USDC", decimal.NewFromInt(price), time.Time{})
	if err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	return id
}

func TestListItemEscrowsUnits(t *testing.T) {
	e := newMarketEnv(t)

	id := e.list(t, 2, 1100)
	if id != 1 {
		t.Errorf("first listing id = %d, want 1", id)
	}
	if got := e.positions.BalanceOf("alice", e.cycle); got != 3 {
		t.Errorf("alice after escrow = %d, want 3", got)
	}
	if got := e.positions.BalanceOf(CustodyAccount, e.cycle); got != 2 {
		t.Errorf("custody = %d, want 2", got)
	}
}

func TestListItemGuards(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)
	price := decimal.NewFromInt(1100)

	e.prod.paused = true
	if _, err := e.mkt.ListItem(ctx, "alice", e.prod, "p", e.cycle, 1, "USDC", price, time.Time{}); !errors.Is(err, domain.ErrPaused) {
		t.Errorf("paused = %v, want ErrPaused", err)
	}
	e.prod.paused = false

	if _, err := e.mkt.ListItem(ctx, "alice", e.prod, "p", e.cycle+1, 1, "USDC", price, time.Time{}); !errors.Is(err, domain.ErrStatusInvalid) {
		t.Errorf("stale cycle = %v, want ErrStatusInvalid", err)
	}
	if _, err := e.mkt.ListItem(ctx, "alice", e.prod, "p", e.cycle, 0, "USDC", price, time.Time{}); !errors.Is(err, domain.ErrZeroAmount) {
		t.Errorf("zero qty = %v, want ErrZeroAmount", err)
	}
	if _, err := e.mkt.ListItem(ctx, "alice", e.prod, "p", e.cycle, 1, "DOGE", price, time.Time{}); !errors.Is(err, domain.ErrAssetNotAllowed) {
		t.Errorf("unlisted asset = %v, want ErrAssetNotAllowed", err)
	}
	if _, err := e.mkt.ListItem(ctx, "alice", e.prod, "p", e.cycle, 6, "USDC", price, time.Time{}); !errors.Is(err, domain.ErrInsufficient) {
		t.Errorf("over balance = %v, want ErrInsufficient", err)
	}

	e.prod.transferable["alice"] = 1
	if _, err := e.mkt.ListItem(ctx, "alice", e.prod, "p", e.cycle, 2, "USDC", price, time.Time{}); !errors.Is(err, domain.ErrUnitsLocked) {
		t.Errorf("locked units = %v, want ErrUnitsLocked", err)
	}
	e.prod.transferable["alice"] = 5

	e.positions.SetApprovalForAll("alice", CustodyAccount, false)
	if _, err := e.mkt.ListItem(ctx, "alice", e.prod, "p", e.cycle, 1, "USDC", price, time.Time{}); !errors.Is(err, domain.ErrNotApprovedForAll) {
		t.Errorf("no approval = %v, want ErrNotApprovedForAll", err)
	}
}

func TestBuyItemSplitsFee(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)
	e.usdc.balances["bob"] = decimal.NewFromInt(10000)

	id := e.list(t, 2, 1100)
	if err := e.mkt.BuyItem(ctx, "bob", id, "USDC", "alice"); err != nil {
		t.Fatalf("BuyItem: %v", err)
	}

	// total 2200, fee 2200×5/1000 = 11
	if got := e.usdc.bal("fees"); !got.Equal(decimal.NewFromInt(11)) {
		t.Errorf("fee = %s, want 11", got)
	}
	if got := e.usdc.bal("alice"); !got.Equal(decimal.NewFromInt(2189)) {
		t.Errorf("seller proceeds = %s, want 2189", got)
	}
	if got := e.positions.BalanceOf("bob", e.cycle); got != 2 {
		t.Errorf("bob units = %d, want 2", got)
	}
	if got := e.positions.BalanceOf(CustodyAccount, e.cycle); got != 0 {
		t.Errorf("custody after sale = %d, want 0", got)
	}

	// Consumed listing is tombstoned; id reads back dead and cannot be reused
	if l, ok := e.mkt.Listing(id); !ok || l.ID != 0 {
		t.Errorf("tombstone read = %+v, ok=%v", l, ok)
	}
	if err := e.mkt.BuyItem(ctx, "bob", id, "USDC", "alice"); !errors.Is(err, domain.ErrListingNotFound) {
		t.Errorf("rebuy = %v, want ErrListingNotFound", err)
	}
}

func TestBuyItemGuards(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)
	e.usdc.balances["bob"] = decimal.NewFromInt(10000)
	id := e.list(t, 1, 1000)

	if err := e.mkt.BuyItem(ctx, "alice", id, "USDC", "alice"); !errors.Is(err, domain.ErrSelfPurchase) {
		t.Errorf("self purchase = %v, want ErrSelfPurchase", err)
	}
	if err := e.mkt.BuyItem(ctx, "bob", id, "DOGE", "alice"); !errors.Is(err, domain.ErrAssetMismatch) {
		t.Errorf("asset mismatch = %v, want ErrAssetMismatch", err)
	}
	if err := e.mkt.BuyItem(ctx, "bob", id, "USDC", "carol"); !errors.Is(err, domain.ErrSellerMismatch) {
		t.Errorf("seller mismatch = %v, want ErrSellerMismatch", err)
	}
	if err := e.mkt.BuyItem(ctx, "bob", 99, "USDC", "alice"); !errors.Is(err, domain.ErrListingNotFound) {
		t.Errorf("unknown id = %v, want ErrListingNotFound", err)
	}
}

func TestBuyItemNotYetLive(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)
	e.usdc.balances["bob"] = decimal.NewFromInt(10000)

	start := time.Now().Add(time.Hour)
	id, err := e.mkt.ListItem(ctx, "alice", e.prod, "p", e.cycle, 1, "USDC", decimal.NewFromInt(1000), start)
	if err != nil {
		t.Fatalf("ListItem: %v", err)
	}

	if err := e.mkt.BuyItem(ctx, "bob", id, "USDC", "alice"); !errors.Is(err, domain.ErrListingNotLive) {
		t.Errorf("early buy = %v, want ErrListingNotLive", err)
	}
}

func TestBuyItemPaymentFailureLeavesEscrow(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)
	e.usdc.balances["bob"] = decimal.NewFromInt(10000)
	id := e.list(t, 1, 1000)

	e.usdc.failNext = true
	if err := e.mkt.BuyItem(ctx, "bob", id, "USDC", "alice"); err == nil {
		t.Fatal("buy with failing payment must error")
	}

	// Listing stays live and the escrow untouched
	if l, ok := e.mkt.Listing(id); !ok || l.ID != id {
		t.Errorf("listing after failed buy = %+v", l)
	}
	if got := e.positions.BalanceOf(CustodyAccount, e.cycle); got != 1 {
		t.Errorf("custody = %d, want 1", got)
	}
}

func TestUpdateListing(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)
	id := e.list(t, 1, 1000)

	if err := e.mkt.UpdateListing(ctx, "bob", id, "USDC", decimal.NewFromInt(900)); !errors.Is(err, domain.ErrNotSeller) {
		t.Errorf("stranger update = %v, want ErrNotSeller", err)
	}
	if err := e.mkt.UpdateListing(ctx, "alice", id, "USDC", decimal.NewFromInt(900)); err != nil {
		t.Fatalf("UpdateListing: %v", err)
	}

	l, _ := e.mkt.Listing(id)
	if !l.UnitPrice.Equal(decimal.NewFromInt(900)) {
		t.Errorf("price = %s, want 900", l.UnitPrice)
	}
}

func TestCancelListingReturnsEscrow(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)
	id := e.list(t, 2, 1000)

	if err := e.mkt.CancelListing(ctx, "bob", id); !errors.Is(err, domain.ErrNotSeller) {
		t.Errorf("stranger cancel = %v, want ErrNotSeller", err)
	}
	if err := e.mkt.CancelListing(ctx, "alice", id); err != nil {
		t.Fatalf("CancelListing: %v", err)
	}

	if got := e.positions.BalanceOf("alice", e.cycle); got != 5 {
		t.Errorf("alice after cancel = %d, want 5", got)
	}
	if err := e.mkt.CancelListing(ctx, "alice", id); !errors.Is(err, domain.ErrListingNotFound) {
		t.Errorf("double cancel = %v, want ErrListingNotFound", err)
	}
}

func TestOpenListingsOrdered(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)

	a := e.list(t, 1, 1000)
	b := e.list(t, 1, 1000)
	c := e.list(t, 1, 1000)
	if err := e.mkt.CancelListing(ctx, "alice", b); err != nil {
		t.Fatalf("CancelListing: %v", err)
	}

	open := e.mkt.OpenListings()
	if len(open) != 2 {
		t.Fatalf("len(open) = %d, want 2", len(open))
	}
	if open[0].ID != a || open[1].ID != c {
		t.Errorf("open ids = %d, %d, want %d, %d", open[0].ID, open[1].ID, a, c)
	}
}

func TestZeroFeeSkipsFeeTransfer(t *testing.T) {
	ctx := context.Background()
	positions := position.NewLedger()
	cycle := positions.NewClass()
	positions.Mint("alice", cycle, 1)
	positions.SetApprovalForAll("alice", CustodyAccount, true)

	usdc := newFakeAsset()
	usdc.balances["bob"] = decimal.NewFromInt(1000)
	prod := &fakeProduct{cycle: cycle, transferable: map[string]int64{"alice": 1}}

	mkt := NewMarketplace(positions, "fees", 0, nil, nil)
	mkt.AllowAsset("USDC", usdc)

	id, err := mkt.ListItem(ctx, "alice", prod, "p", cycle, 1, "USDC", decimal.NewFromInt(1000), time.Time{})
	if err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	if err := mkt.BuyItem(ctx, "bob", id, "USDC", "alice"); err != nil {
		t.Fatalf("BuyItem: %v", err)
	}
	if !usdc.bal("fees").IsZero() {
		t.Errorf("fee account = %s, want 0", usdc.bal("fees"))
	}
	if !usdc.bal("alice").Equal(decimal.NewFromInt(1000)) {
		t.Errorf("seller = %s, want 1000", usdc.bal("alice"))
	}
}

// reentrantPayAsset calls back into the marketplace from inside the payment
// pull, the way a malicious payment contract would.
type reentrantPayAsset struct {
	mkt      *Marketplace
	seller   string
	listing  int64
	innerErr error
}

func (a *reentrantPayAsset) TransferFrom(ctx context.Context, _, _, _ string, _ decimal.Decimal) error {
	a.innerErr = a.mkt.CancelListing(ctx, a.seller, a.listing)
	return a.innerErr
}

func TestBuyItemReentrancyRejected(t *testing.T) {
	ctx := context.Background()
	e := newMarketEnv(t)

	mal := &reentrantPayAsset{mkt: e.mkt, seller: "alice"}
	e.mkt.AllowAsset("EVIL", mal)

	id, err := e.mkt.ListItem(ctx, "alice", e.prod, "BTC-PPN-01",
		e.cycle, 2, "EVIL", decimal.NewFromInt(1100), time.Time{})
	if err != nil {
		t.Fatalf("ListItem: %v", err)
	}
	mal.listing = id

	err = e.mkt.BuyItem(ctx, "bob", id, "EVIL", "alice")
	if !errors.Is(err, domain.ErrReentrantCall) {
		t.Fatalf("BuyItem = %v, want ErrReentrantCall", err)
	}
	if !errors.Is(mal.innerErr, domain.ErrReentrantCall) {
		t.Errorf("nested cancel = %v, want ErrReentrantCall", mal.innerErr)
	}

	// The failed purchase leaves the listing live and the escrow intact.
	l, ok := e.mkt.Listing(id)
	if !ok || l.ID != id {
		t.Errorf("listing after failed buy = %+v, want live id %d", l, id)
	}
	if got := e.positions.BalanceOf(CustodyAccount, e.cycle); got != 2 {
		t.Errorf("custody = %d, want 2", got)
	}
}
