package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/asset"
	"github.com/hedgeline/issuance/internal/domain"
	"github.com/hedgeline/issuance/internal/position"
	"github.com/hedgeline/issuance/internal/product"
)

var lot = decimal.New(1000, 6)

func newRegistry() (*Registry, *asset.Token) {
	usdc := asset.NewToken("USDC", 6)
	return NewRegistry(usdc, position.NewLedger(), nil), usdc
}

func cfg(name string) product.Config {
	return product.Config{
		Name:        name,
		Underlying:  "BTC/USD",
		Manager:     "manager",
		LotSize:     lot,
		MaxCapacity: lot.Mul(decimal.NewFromInt(100)),
		Cycle:       domain.IssuanceCycle{CouponBps: 10},
	}
}

func TestCreateAndGetProduct(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	led, err := reg.CreateProduct(ctx, cfg("a"))
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	got, err := reg.GetProduct("a")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got != led {
		t.Error("GetProduct returned a different ledger")
	}

	if _, err := reg.GetProduct("missing"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("missing product = %v, want ErrProductNotFound", err)
	}
}

func TestCreateProductRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	if _, err := reg.CreateProduct(ctx, cfg("a")); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if _, err := reg.CreateProduct(ctx, cfg("a")); !errors.Is(err, domain.ErrProductExists) {
		t.Errorf("duplicate = %v, want ErrProductExists", err)
	}
	if got := reg.NumProducts(); got != 1 {
		t.Errorf("NumProducts = %d, want 1", got)
	}
}

func TestNamesAndAllSorted(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()

	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if _, err := reg.CreateProduct(ctx, cfg(name)); err != nil {
			t.Fatalf("CreateProduct(%s): %v", name, err)
		}
	}

	names := reg.Names()
	want := []string{"alpha", "bravo", "charlie"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v, want %v", names, want)
		}
	}

	all := reg.All()
	for i := range want {
		if all[i].Name() != want[i] {
			t.Fatalf("All order = %v", all)
		}
	}
}

func TestSetIssuanceCycleByName(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry()
	if _, err := reg.CreateProduct(ctx, cfg("a")); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	if err := reg.SetIssuanceCycle(ctx, "manager", "a", domain.IssuanceCycle{CouponBps: 42}); err != nil {
		t.Fatalf("SetIssuanceCycle: %v", err)
	}
	led, _ := reg.GetProduct("a")
	if got := led.Snapshot().Cycle.CouponBps; got != 42 {
		t.Errorf("coupon bps = %d, want 42", got)
	}

	if err := reg.SetIssuanceCycle(ctx, "manager", "missing", domain.IssuanceCycle{}); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("missing product = %v, want ErrProductNotFound", err)
	}
}

func TestAccrueIssuedSkipsOtherStates(t *testing.T) {
	ctx := context.Background()
	reg, usdc := newRegistry()

	issued, err := reg.CreateProduct(ctx, cfg("issued"))
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if _, err := reg.CreateProduct(ctx, cfg("pending")); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	usdc.Mint("alice", lot)
	usdc.Approve("alice", "issued", lot)
	if err := issued.FundAccept(ctx, "manager"); err != nil {
		t.Fatal(err)
	}
	if err := issued.Deposit(ctx, "alice", lot, false); err != nil {
		t.Fatal(err)
	}
	if err := issued.FundLock(ctx, "manager"); err != nil {
		t.Fatal(err)
	}
	if err := issued.Issuance(ctx, "manager"); err != nil {
		t.Fatal(err)
	}

	if err := reg.AccrueIssued(ctx, "manager"); err != nil {
		t.Fatalf("AccrueIssued: %v", err)
	}

	h, _ := issued.HolderInfo("alice")
	if !h.Coupon.Equal(decimal.New(1, 6)) {
		t.Errorf("coupon = %s, want 1e6", h.Coupon)
	}
}
