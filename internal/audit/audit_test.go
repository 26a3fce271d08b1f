package audit

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/asset"
)

type fakeProduct struct {
	name        string
	in, out     decimal.Decimal
	liabilities decimal.Decimal
	deployed    decimal.Decimal
	capacity    decimal.Decimal
	lot         decimal.Decimal
	supply      int64
}

func (p *fakeProduct) Name() string { return p.name }
func (p *fakeProduct) Totals() (in, out decimal.Decimal) {
	return p.in, p.out
}
func (p *fakeProduct) OwedLiabilities() decimal.Decimal { return p.liabilities }
func (p *fakeProduct) DeployedYield() decimal.Decimal   { return p.deployed }
func (p *fakeProduct) Capacity() decimal.Decimal        { return p.capacity }
func (p *fakeProduct) LotSize() decimal.Decimal         { return p.lot }
func (p *fakeProduct) CycleSupply() int64               { return p.supply }

func TestCheckConserved(t *testing.T) {
	ctx := context.Background()
	usdc := asset.NewToken("USDC", 6)
	usdc.Mint("p1", decimal.NewFromInt(700))

	p := &fakeProduct{
		name:        "p1",
		in:          decimal.NewFromInt(1000),
		out:         decimal.NewFromInt(300),
		liabilities: decimal.NewFromInt(500),
	}

	r, err := NewChecker(usdc).Check(ctx, p)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !r.Conserved {
		t.Error("expected conserved")
	}
	if !r.Covered {
		t.Error("expected liabilities covered")
	}
}

func TestCheckDetectsLeak(t *testing.T) {
	ctx := context.Background()
	usdc := asset.NewToken("USDC", 6)
	usdc.Mint("p1", decimal.NewFromInt(699)) // one unit missing

	p := &fakeProduct{
		name: "p1",
		in:   decimal.NewFromInt(1000),
		out:  decimal.NewFromInt(300),
	}

	r, err := NewChecker(usdc).Check(ctx, p)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if r.Conserved {
		t.Error("leak not detected")
	}
}

func TestCheckUncoveredLiabilities(t *testing.T) {
	ctx := context.Background()
	usdc := asset.NewToken("USDC", 6)
	usdc.Mint("p1", decimal.NewFromInt(100))

	p := &fakeProduct{
		name:        "p1",
		in:          decimal.NewFromInt(100),
		out:         decimal.Zero,
		liabilities: decimal.NewFromInt(200),
	}

	r, err := NewChecker(usdc).Check(ctx, p)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !r.Conserved {
		t.Error("expected conserved")
	}
	if r.Covered {
		t.Error("uncovered liabilities not detected")
	}
}

func TestCheckSupplyMismatch(t *testing.T) {
	ctx := context.Background()
	usdc := asset.NewToken("USDC", 6)
	usdc.Mint("p1", decimal.NewFromInt(3000))

	// Three units minted against only two lots of recorded capacity.
	p := &fakeProduct{
		name:     "p1",
		in:       decimal.NewFromInt(3000),
		out:      decimal.Zero,
		capacity: decimal.NewFromInt(2000),
		lot:      decimal.NewFromInt(1000),
		supply:   3,
	}

	r, err := NewChecker(usdc).Check(ctx, p)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if r.SupplyMatched {
		t.Error("phantom units not detected")
	}

	_, err = NewChecker(usdc).CheckAll(ctx, []Product{p})
	if err == nil || !strings.Contains(err.Error(), "supply mismatch") {
		t.Errorf("CheckAll err = %v, want supply mismatch", err)
	}
}

func TestCheckAllStopsOnViolation(t *testing.T) {
	ctx := context.Background()
	usdc := asset.NewToken("USDC", 6)
	usdc.Mint("good", decimal.NewFromInt(100))
	// "bad" has no on-hand balance at all

	good := &fakeProduct{name: "good", in: decimal.NewFromInt(100), out: decimal.Zero}
	bad := &fakeProduct{name: "bad", in: decimal.NewFromInt(100), out: decimal.Zero}

	reports, err := NewChecker(usdc).CheckAll(ctx, []Product{good, bad})
	if err == nil {
		t.Fatal("expected conservation error")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("error should name the violating product: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("len(reports) = %d, want 2", len(reports))
	}
}
