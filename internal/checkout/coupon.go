package checkout

import (
	"context"

	"github.com/ferndesk/portal-checkout/domain"
	"github.com/ferndesk/portal-checkout/internal/pricing"
)

// couponLegal lists the states where applying or removing a coupon is
// allowed. Neither operation regresses the state; if a handle exists it is
// invalidated and the session waits in place for re-authorization.
func couponLegal(state domain.CheckoutState) bool {
	switch state {
	case domain.StateQuoteReady, domain.StatePaymentMethodSelected, domain.StateCardCapturePending:
		return true
	}
	return false
}

// ApplyCoupon validates the code against the coupon table and recomputes the
// final due-today figure. A failed validation leaves the quote untouched.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (domain.PaymentQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !couponLegal(s.state) {
		return s.quote, domain.ErrIllegalTransition
	}

	discount, err := s.coupons.Apply(ctx, code, s.quote.DueToday)
	if err != nil {
		return s.quote, err
	}

	s.applyDiscount(ctx, discount)
	s.logger.Info().
		Str("coupon", discount.Code).
		Str("final_due_today", s.quote.FinalDueToday.String()).
		Msg("coupon applied")
	return s.quote, nil
}

// RemoveCoupon is a pure transition back to the pre-coupon quote.
func (s *Session) RemoveCoupon(ctx context.Context) (domain.PaymentQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !couponLegal(s.state) {
		return s.quote, domain.ErrIllegalTransition
	}
	if s.discount == nil {
		return s.quote, nil
	}

	s.applyDiscount(ctx, nil)
	s.logger.Info().Str("final_due_today", s.quote.FinalDueToday.String()).Msg("coupon removed")
	return s.quote, nil
}

// applyDiscount recomputes the settlement total and invalidates any
// outstanding handle when the amount actually moved. A stale handle must
// never be captured against a different amount. Callers hold s.mu.
func (s *Session) applyDiscount(ctx context.Context, discount *domain.CouponDiscount) {
	previous := s.quote.FinalDueToday
	s.discount = discount
	s.quote = pricing.Settle(s.quote, discount)

	if !s.quote.FinalDueToday.Equal(previous) {
		s.intents.Invalidate(ctx)
	}
}
