package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ferndesk/portal-checkout/domain"
)

var hundred = decimal.NewFromInt(100)

// Settle applies a coupon discount to a pre-coupon quote and produces the
// final due-today figure, the amount actually authorized. A nil discount
// restores the pre-coupon quote exactly. Coupons never touch the recurring
// monthly total.
func Settle(quote domain.PaymentQuote, discount *domain.CouponDiscount) domain.PaymentQuote {
	if discount == nil {
		quote.CouponDiscount = decimal.Zero
		quote.FinalDueToday = quote.DueToday
		return quote
	}

	final := quote.DueToday.Sub(discount.Amount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	quote.CouponDiscount = discount.Amount
	quote.FinalDueToday = final
	return quote
}

// MinorUnits converts a currency amount to the processor's integer minor
// units, rounding half-up.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
