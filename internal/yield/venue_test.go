package yield

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hedgeline/issuance/internal/asset"
	"github.com/hedgeline/issuance/internal/domain"
)

func TestDepositAndWithdrawWithYield(t *testing.T) {
	ctx := context.Background()
	usdc := asset.NewToken("USDC", 6)
	usdc.Mint("product", decimal.NewFromInt(10000))

	v := NewMemoryVenue(usdc, "pool", 100) // 1%

	receipt, err := v.Deposit(ctx, "product", decimal.NewFromInt(10000))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !receipt.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("receipt = %s, want 1:1 with principal", receipt)
	}

	got, err := v.Withdraw(ctx, "product", receipt)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(10100)) {
		t.Errorf("withdrawn = %s, want 10100", got)
	}

	b, _ := usdc.BalanceOf(ctx, "product")
	if !b.Equal(decimal.NewFromInt(10100)) {
		t.Errorf("product balance = %s, want 10100", b)
	}
}

func TestDepositRejectsNonPositive(t *testing.T) {
	usdc := asset.NewToken("USDC", 6)
	v := NewMemoryVenue(usdc, "pool", 100)

	if _, err := v.Deposit(context.Background(), "product", decimal.Zero); !errors.Is(err, domain.ErrZeroAmount) {
		t.Errorf("Deposit(0) = %v, want ErrZeroAmount", err)
	}
}

func TestWithdrawOverReceipt(t *testing.T) {
	ctx := context.Background()
	usdc := asset.NewToken("USDC", 6)
	usdc.Mint("product", decimal.NewFromInt(100))
	v := NewMemoryVenue(usdc, "pool", 100)

	if _, err := v.Deposit(ctx, "product", decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := v.Withdraw(ctx, "product", decimal.NewFromInt(101)); !errors.Is(err, domain.ErrInsufficient) {
		t.Errorf("over-withdraw = %v, want ErrInsufficient", err)
	}
}

func TestZeroRateVenueMintsNothing(t *testing.T) {
	ctx := context.Background()
	usdc := asset.NewToken("USDC", 6)
	usdc.Mint("product", decimal.NewFromInt(100))
	v := NewMemoryVenue(usdc, "pool", 0)

	receipt, _ := v.Deposit(ctx, "product", decimal.NewFromInt(100))
	got, err := v.Withdraw(ctx, "product", receipt)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("withdrawn = %s, want principal only", got)
	}
}
