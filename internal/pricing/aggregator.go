package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ferndesk/portal-checkout/domain"
)

// Aggregate folds an ordered cart into a pre-coupon quote. It is total over
// any cart the builder can produce: malformed promotion counts are clamped
// rather than rejected, and only the final recurring figure is floored at
// zero so the intermediate terms stay auditable.
func Aggregate(items []domain.CartItem, currency string) domain.PaymentQuote {
	fullPrice := decimal.Zero
	bundleSavings := decimal.Zero
	freeValue := decimal.Zero
	onetime := decimal.Zero

	for _, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))

		switch billing := item.Billing.(type) {
		case domain.OneTimeFee:
			// One-time items never contribute to monthly figures.
			if billing.Price.IsPositive() {
				onetime = onetime.Add(billing.Price.Mul(qty))
			}

		case domain.MonthlyBilling:
			if billing.Price.IsPositive() {
				if item.IsBundle() && item.FullPrice.IsPositive() {
					fullPrice = fullPrice.Add(item.FullPrice.Mul(qty))
					bundleSavings = bundleSavings.Add(item.FullPrice.Sub(billing.Price).Mul(qty))
				} else {
					fullPrice = fullPrice.Add(billing.Price.Mul(qty))
				}
			}

			// Whole-item free takes precedence over partial free so the
			// item is never counted under both rules.
			if item.IsFree {
				freeValue = freeValue.Add(billing.Price.Mul(qty))
			} else if item.FreeQuantity > 0 {
				freeQty := item.FreeQuantity
				if freeQty > item.Quantity {
					freeQty = item.Quantity
				}
				freeValue = freeValue.Add(billing.Price.Mul(decimal.NewFromInt(int64(freeQty))))
			}
		}
	}

	monthlyTotal := fullPrice.Sub(bundleSavings).Sub(freeValue)
	if monthlyTotal.IsNegative() {
		monthlyTotal = decimal.Zero
	}
	if onetime.IsNegative() {
		onetime = decimal.Zero
	}

	dueToday := monthlyTotal.Add(onetime)

	return domain.PaymentQuote{
		FullPriceMonthly: fullPrice,
		BundleSavings:    bundleSavings,
		FreeItemsValue:   freeValue,
		MonthlyTotal:     monthlyTotal,
		OnetimeTotal:     onetime,
		DueToday:         dueToday,
		CouponDiscount:   decimal.Zero,
		FinalDueToday:    dueToday,
		Currency:         currency,
	}
}
