package export

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/asset"
	"github.com/hedgeline/issuance/internal/position"
	"github.com/hedgeline/issuance/internal/product"
	"github.com/hedgeline/issuance/internal/registry"
)

var lot = decimal.New(1000, 6) // 1000 USDC in smallest units

func setupRegistry(t *testing.T) (*registry.Registry, *asset.Token) {
	t.Helper()

	usdc := asset.NewToken("USDC", 6)
	reg := registry.NewRegistry(usdc, position.NewLedger(), nil)

	ctx := context.Background()
	led, err := reg.CreateProduct(ctx, product.Config{
		Name:        "BTC-PPN-01",
		Underlying:  "BTC/USD",
		Manager:     "manager",
		LotSize:     lot,
		MaxCapacity: lot.Mul(decimal.NewFromInt(100)),
	})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}

	if err := led.FundAccept(ctx, "manager"); err != nil {
		t.Fatalf("FundAccept: %v", err)
	}

	usdc.Mint("alice", lot.Mul(decimal.NewFromInt(5)))
	usdc.Approve("alice", "BTC-PPN-01", lot.Mul(decimal.NewFromInt(5)))
	if err := led.Deposit(ctx, "alice", lot.Mul(decimal.NewFromInt(3)), false); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	return reg, usdc
}

func TestBuildRows(t *testing.T) {
	reg, _ := setupRegistry(t)
	svc := NewService(reg)

	rows := svc.BuildRows()
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}

	row := rows[0]
	if row.Product != "BTC-PPN-01" {
		t.Errorf("Product = %q", row.Product)
	}
	if row.Holder != "alice" {
		t.Errorf("Holder = %q", row.Holder)
	}
	if row.Units != 3 {
		t.Errorf("Units = %d, want 3", row.Units)
	}
	if wantPrincipal := lot.Mul(decimal.NewFromInt(3)); !row.Principal.Equal(wantPrincipal) {
		t.Errorf("Principal = %s, want %s", row.Principal, wantPrincipal)
	}
	if row.Status != "FundAccepting" {
		t.Errorf("Status = %q, want FundAccepting", row.Status)
	}
}

type captureWriter struct {
	rows []StatementRow
}

func (c *captureWriter) Write(_ context.Context, rows []StatementRow) error {
	c.rows = rows
	return nil
}

func TestExportFansOut(t *testing.T) {
	reg, _ := setupRegistry(t)

	a := &captureWriter{}
	b := &captureWriter{}
	svc := NewService(reg, a, b)

	if err := svc.Export(context.Background()); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(a.rows) != 1 || len(b.rows) != 1 {
		t.Errorf("writers received %d and %d rows, want 1 each", len(a.rows), len(b.rows))
	}
}
