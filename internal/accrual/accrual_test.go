package accrual

import (
	"testing"

	"github.com/shopspring/decimal"
)

var lot = decimal.New(1000, 6) // 1000 USDC in smallest units

func TestCoupon(t *testing.T) {
	tests := []struct {
		name  string
		units int64
		bps   int64
		want  string
	}{
		{"two lots at 10 bps", 2, 10, "2000000"},
		{"one lot at 10 bps", 1, 10, "1000000"},
		{"zero units", 0, 10, "0"},
		{"zero bps", 5, 0, "0"},
		{"fifty bps", 4, 50, "20000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coupon(tt.units, lot, tt.bps)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Coupon(%d, lot, %d) = %s, want %s", tt.units, tt.bps, got, want)
			}
		})
	}
}

func TestPlanCouponSkipsZeroHolders(t *testing.T) {
	holders := []HolderBalance{
		{Address: "alice", Units: 2},
		{Address: "bob", Units: 0},
		{Address: "carol", Units: 1},
	}

	credits := PlanCoupon(holders, lot, 10)
	if len(credits) != 2 {
		t.Fatalf("len(credits) = %d, want 2", len(credits))
	}
	if credits[0].Address != "alice" || !credits[0].Amount.Equal(decimal.New(2, 6)) {
		t.Errorf("alice credit = %+v", credits[0])
	}
	if credits[1].Address != "carol" || !credits[1].Amount.Equal(decimal.New(1, 6)) {
		t.Errorf("carol credit = %+v", credits[1])
	}
}

func TestPlanProRataTruncatesPerHolder(t *testing.T) {
	holders := []HolderBalance{
		{Address: "alice", Units: 1},
		{Address: "bob", Units: 2},
	}
	profit := decimal.NewFromInt(100)

	credits := PlanProRata(holders, 3, profit)
	if len(credits) != 2 {
		t.Fatalf("len(credits) = %d, want 2", len(credits))
	}
	// 100×1/3 = 33 and 100×2/3 = 66; one unit of profit is forfeited as dust
	if !credits[0].Amount.Equal(decimal.NewFromInt(33)) {
		t.Errorf("alice share = %s, want 33", credits[0].Amount)
	}
	if !credits[1].Amount.Equal(decimal.NewFromInt(66)) {
		t.Errorf("bob share = %s, want 66", credits[1].Amount)
	}
	if total := Total(credits); !total.Equal(decimal.NewFromInt(99)) {
		t.Errorf("total = %s, want 99", total)
	}
}

func TestPlanProRataEmptyCases(t *testing.T) {
	holders := []HolderBalance{{Address: "alice", Units: 1}}

	if got := PlanProRata(holders, 0, decimal.NewFromInt(100)); got != nil {
		t.Errorf("zero supply: got %v, want nil", got)
	}
	if got := PlanProRata(holders, 1, decimal.Zero); got != nil {
		t.Errorf("zero profit: got %v, want nil", got)
	}
}

func TestSplitCapacity(t *testing.T) {
	capacity := decimal.New(10000, 6)

	yieldPart, optionPart := SplitCapacity(capacity, 9500)
	if !yieldPart.Equal(decimal.New(9500, 6)) {
		t.Errorf("yieldPart = %s", yieldPart)
	}
	if !optionPart.Equal(decimal.New(500, 6)) {
		t.Errorf("optionPart = %s", optionPart)
	}
	if !yieldPart.Add(optionPart).Equal(capacity) {
		t.Error("split must conserve capacity")
	}
}

func TestTotalEmpty(t *testing.T) {
	if !Total(nil).Equal(decimal.Zero) {
		t.Error("Total(nil) should be zero")
	}
}
