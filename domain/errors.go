package domain

import "errors"

var (
	// ErrEmptyCart means there is nothing to settle; checkout cannot proceed.
	ErrEmptyCart = errors.New("cart is empty, nothing to settle")

	// ErrEmptyCoupon and ErrInvalidCoupon are user-correctable input errors.
	// They leave the quote and any outstanding handle untouched.
	ErrEmptyCoupon   = errors.New("coupon code is empty")
	ErrInvalidCoupon = errors.New("coupon code is not recognized")

	// ErrPaymentSetup means the authorization request itself failed
	// (network or processor side). Recoverable by retry.
	ErrPaymentSetup = errors.New("payment setup failed")

	// ErrPaymentDeclined means the processor rejected the capture.
	// Recoverable with a different payment method.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrAuthorizationInFlight means a second authorization was triggered
	// while one is outstanding. The caller retries after the first lands.
	ErrAuthorizationInFlight = errors.New("an authorization request is already in flight")

	// ErrIntentSuperseded means an in-flight authorization finished after
	// the target amount had moved; its result was discarded.
	ErrIntentSuperseded = errors.New("authorization superseded by a newer total")

	ErrIllegalTransition = errors.New("illegal transition of checkout state")
)
