package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentQuote is the derived pricing breakdown for a cart. It is recomputed
// on every cart or coupon change and never persisted.
type PaymentQuote struct {
	FullPriceMonthly decimal.Decimal `json:"full_price_monthly"`
	BundleSavings    decimal.Decimal `json:"bundle_savings"`
	FreeItemsValue   decimal.Decimal `json:"free_items_value"`
	MonthlyTotal     decimal.Decimal `json:"monthly_total"`
	OnetimeTotal     decimal.Decimal `json:"onetime_total"`
	DueToday         decimal.Decimal `json:"due_today"`
	CouponDiscount   decimal.Decimal `json:"coupon_discount"`
	FinalDueToday    decimal.Decimal `json:"final_due_today"`
	Currency         string          `json:"currency"`
}

// Coupon is one entry of the coupon table.
type Coupon struct {
	Code            string `bson:"code" json:"code"`
	DiscountPercent int    `bson:"discount_percent" json:"discount_percent"`
}

// CouponDiscount is a validated coupon applied against a concrete due-today
// amount.
type CouponDiscount struct {
	Code            string          `json:"code"`
	DiscountPercent int             `json:"discount_percent"`
	Amount          decimal.Decimal `json:"amount"`
}

// Settlement is the record of a successful capture, handed to the ledger and
// to downstream onboarding. Cart items are carried along because the
// onboarding flow reads them after checkout.
type Settlement struct {
	ID          string          `json:"settlement_id"`
	ClientID    string          `json:"client_id"`
	Tier        string          `json:"tier"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	Currency    string          `json:"currency"`
	Items       []CartItem      `json:"items"`
	SettledAt   time.Time       `json:"settled_at"`
}
