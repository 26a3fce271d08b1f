package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestTruncDiv(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{"exact", "10", "2", "5"},
		{"truncates remainder", "7", "2", "3"},
		{"negative truncates toward zero", "-7", "2", "-3"},
		{"zero divisor", "7", "0", "0"},
		{"large smallest-unit amounts", "1000000000", "3", "333333333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncDiv(d(tt.a), d(tt.b))
			if !got.Equal(d(tt.want)) {
				t.Errorf("TruncDiv(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestBpsShare(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		bps    int64
		want   string
	}{
		{"ten bps of 2000 lots", "2000000000", 10, "2000000"},
		{"half percent", "1000000", 50, "5000"},
		{"dust forfeited", "999", 10, "0"},
		{"zero bps", "1000000", 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BpsShare(d(tt.amount), tt.bps)
			if !got.Equal(d(tt.want)) {
				t.Errorf("BpsShare(%s, %d) = %s, want %s", tt.amount, tt.bps, got, tt.want)
			}
		})
	}
}

func TestIsWholeLots(t *testing.T) {
	lot := d("1000000000") // 1000 units at 6 decimals

	tests := []struct {
		name   string
		amount string
		want   bool
	}{
		{"one lot", "1000000000", true},
		{"three lots", "3000000000", true},
		{"fractional lot", "1500000000", false},
		{"zero", "0", false},
		{"negative", "-1000000000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWholeLots(d(tt.amount), lot); got != tt.want {
				t.Errorf("IsWholeLots(%s) = %v, want %v", tt.amount, got, tt.want)
			}
		})
	}
}

func TestIsWholeLotsZeroLot(t *testing.T) {
	if IsWholeLots(d("1000"), decimal.Zero) {
		t.Error("zero lot must never validate")
	}
}

func TestLots(t *testing.T) {
	lot := d("1000000000")
	if got := Lots(d("3000000000"), lot); got != 3 {
		t.Errorf("Lots = %d, want 3", got)
	}
}
