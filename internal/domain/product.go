package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssuanceCycle holds the per-cycle configuration of a product. Mutable only
// while the product is not in Issued status.
type IssuanceCycle struct {
	CouponBps     int64     `json:"couponBps"`
	StrikePrice1  int64     `json:"strikePrice1"`
	StrikePrice2  int64     `json:"strikePrice2"`
	StrikePrice3  int64     `json:"strikePrice3"`
	StrikePrice4  int64     `json:"strikePrice4"`
	TargetReturn1 int64     `json:"targetReturn1,omitempty"`
	TargetReturn2 int64     `json:"targetReturn2,omitempty"`
	IssuanceDate  time.Time `json:"issuanceDate"`
	MaturityDate  time.Time `json:"maturityDate"`
	APYRange      string    `json:"apyRange,omitempty"`
	URI           string    `json:"uri,omitempty"`
}

// HolderInfo is the per-(product, holder) bookkeeping record. Created lazily
// on first deposit or first accrual. Owed balances never go negative.
type HolderInfo struct {
	Coupon             decimal.Decimal `json:"coupon"`
	OptionPayout       decimal.Decimal `json:"optionPayout"`
	RolledUnits        int64           `json:"rolledUnits"`
	PrincipalWithdrawn bool            `json:"principalWithdrawn"`
	ToppedUp           bool            `json:"toppedUp"`
}

// NewHolderInfo returns a zeroed holder record.
func NewHolderInfo() *HolderInfo {
	return &HolderInfo{Coupon: decimal.Zero, OptionPayout: decimal.Zero}
}

// Listing is a secondary-market offer. A consumed or cancelled listing is
// tombstoned with ID zero, never reactivated.
type Listing struct {
	ID        int64           `json:"id"`
	Seller    string          `json:"seller"`
	Product   string          `json:"product"`
	CycleID   int64           `json:"cycleId"`
	Quantity  int64           `json:"quantity"`
	PayAsset  string          `json:"payAsset"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	StartAt   time.Time       `json:"startAt"`
	CreatedAt time.Time       `json:"createdAt"`
}
