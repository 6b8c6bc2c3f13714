package domain

type CheckoutState string

const (
	StateLoading               CheckoutState = "LOADING"
	StateQuoteReady            CheckoutState = "QUOTE_READY"
	StatePaymentMethodSelected CheckoutState = "PAYMENT_METHOD_SELECTED"
	StateCardCapturePending    CheckoutState = "CARD_CAPTURE_PENDING"
	StateAuthorizing           CheckoutState = "AUTHORIZING"
	StateSettled               CheckoutState = "SETTLED"
	StatePostSettlement        CheckoutState = "POST_SETTLEMENT"
	StateEmptyCart             CheckoutState = "EMPTY_CART"
	StateError                 CheckoutState = "ERROR"
)

// transitions is the authoritative table. Anything not listed is illegal.
var transitions = map[CheckoutState][]CheckoutState{
	StateLoading:               {StateQuoteReady, StateEmptyCart},
	StateQuoteReady:            {StatePaymentMethodSelected},
	StatePaymentMethodSelected: {StateCardCapturePending, StateAuthorizing, StateSettled},
	StateCardCapturePending:    {StateAuthorizing, StateSettled, StateError},
	StateAuthorizing:           {StateSettled, StateError},
	StateSettled:               {StatePostSettlement},
	StateError:                 {StateCardCapturePending},
}

func CanTransitionTo(from, to CheckoutState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutState) IsTerminal() bool {
	return s == StatePostSettlement || s == StateEmptyCart
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}

// PaymentMethod is the capture path the client chose.
type PaymentMethod string

const (
	MethodCardOnFile PaymentMethod = "card_on_file"
	MethodNewCard    PaymentMethod = "new_card"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCardOnFile || m == MethodNewCard
}
