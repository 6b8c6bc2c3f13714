package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/ferndesk/portal-checkout/domain"
	"github.com/ferndesk/portal-checkout/internal/pricing"
)

// SelectPaymentMethod records the capture path the client chose. Re-selecting
// while still on the method screen is allowed.
func (s *Session) SelectPaymentMethod(method domain.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !method.Valid() {
		return fmt.Errorf("unknown payment method %q", method)
	}
	if s.state != domain.StatePaymentMethodSelected {
		if !domain.CanTransitionTo(s.state, domain.StatePaymentMethodSelected) {
			return domain.ErrIllegalTransition
		}
		s.state = domain.StatePaymentMethodSelected
	}
	s.method = method
	return nil
}

// OpenCardCapture expands the card entry form. The processor is contacted
// only here, after the client has shown intent to pay, never on page load.
// Re-entry while already pending re-issues the intent, which is how retries
// after a setup failure and re-authorization after a coupon change work.
func (s *Session) OpenCardCapture(ctx context.Context) (*domain.IntentHandle, error) {
	s.mu.Lock()

	if s.method != domain.MethodNewCard {
		s.mu.Unlock()
		return nil, fmt.Errorf("card capture requires the new card method, have %q", s.method)
	}
	if s.state != domain.StateCardCapturePending {
		if !domain.CanTransitionTo(s.state, domain.StateCardCapturePending) {
			s.mu.Unlock()
			return nil, domain.ErrIllegalTransition
		}
		s.state = domain.StateCardCapturePending
	}
	amount := s.quote.FinalDueToday
	s.mu.Unlock()

	// Zero-amount settlements skip the processor entirely; Confirm settles
	// directly.
	handle, err := s.intents.EnsureIntent(ctx, amount, s.intentMetadata())
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// Confirm submits the settlement. For a zero final total it settles without
// any processor round trip; otherwise it captures against the live handle.
// The returned result reports requires_action step-ups, which keep the
// session in AUTHORIZING until the client completes them.
func (s *Session) Confirm(ctx context.Context) (*domain.ConfirmResult, error) {
	s.mu.Lock()

	if s.state == domain.StateSettled {
		// Charge already captured; only the post-settlement side effects
		// remain to be retried.
		s.mu.Unlock()
		return &domain.ConfirmResult{Status: domain.ConfirmSucceeded}, s.finalize(ctx)
	}

	if err := s.revalidateCoupon(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if s.quote.FinalDueToday.IsZero() {
		if !domain.CanTransitionTo(s.state, domain.StateSettled) {
			s.mu.Unlock()
			return nil, domain.ErrIllegalTransition
		}
		s.state = domain.StateSettled
		s.logger.Info().Msg("zero-amount settlement, no processor interaction")
		s.mu.Unlock()
		return &domain.ConfirmResult{Status: domain.ConfirmSucceeded}, s.finalize(ctx)
	}

	amount := s.quote.FinalDueToday
	method := s.method

	if s.state != domain.StateAuthorizing {
		if !domain.CanTransitionTo(s.state, domain.StateAuthorizing) {
			s.mu.Unlock()
			return nil, domain.ErrIllegalTransition
		}
	}
	s.mu.Unlock()

	if method == domain.MethodCardOnFile {
		// The stored method needs no interactive capture, but the charge is
		// still authorized amount-bound like any other.
		if _, err := s.intents.EnsureIntent(ctx, amount, s.intentMetadata()); err != nil {
			return nil, err
		}
	} else {
		handle := s.intents.Handle()
		if handle == nil || handle.AmountMinor != pricing.MinorUnits(amount) {
			return nil, fmt.Errorf("%w: no authorization for the current total, reopen card capture", domain.ErrPaymentSetup)
		}
	}

	s.mu.Lock()
	if s.state != domain.StateAuthorizing {
		s.state = domain.StateAuthorizing
	}
	s.mu.Unlock()

	result, err := s.intents.Confirm(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuthorizationInFlight) {
			// A duplicate submission lost the race; the winning capture is
			// still out and decides the session's fate.
			return nil, err
		}
		s.toError()
		return nil, err
	}

	switch result.Status {
	case domain.ConfirmSucceeded:
		s.mu.Lock()
		s.state = domain.StateSettled
		s.mu.Unlock()
		s.logger.Info().Str("amount", amount.String()).Msg("settlement captured")
		return result, s.finalize(ctx)

	case domain.ConfirmRequiresAction:
		// Not a failure: the client finishes the processor-guided step-up
		// and confirms again.
		return result, nil

	default:
		s.toError()
		return result, fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, result.Message)
	}
}

// Retry returns an errored session to card capture so the client can try a
// different card.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !domain.CanTransitionTo(s.state, domain.StateCardCapturePending) {
		return domain.ErrIllegalTransition
	}
	s.state = domain.StateCardCapturePending
	return nil
}

func (s *Session) toError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if domain.CanTransitionTo(s.state, domain.StateError) {
		s.state = domain.StateError
	}
}

// revalidateCoupon re-checks the applied code against the table right before
// money moves, closing the race between client-side validation and capture.
// A withdrawn code fails the confirmation and drops off the quote. Callers
// hold s.mu.
func (s *Session) revalidateCoupon(ctx context.Context) error {
	if s.discount == nil {
		return nil
	}

	_, err := s.coupons.Apply(ctx, s.discount.Code, s.quote.DueToday)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidCoupon) || errors.Is(err, domain.ErrEmptyCoupon) {
		s.logger.Warn().Str("coupon", s.discount.Code).Msg("coupon withdrawn before settlement")
		s.applyDiscount(ctx, nil)
		return fmt.Errorf("coupon no longer valid: %w", domain.ErrInvalidCoupon)
	}
	// Lookup outage: keep the coupon, fail the attempt, let the client retry.
	return err
}
