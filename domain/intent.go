package domain

// IntentHandle is an opaque, amount-bound authorization token issued by the
// payment processor. A handle is only valid for the exact amount it was
// created with; it is superseded whenever the final due-today amount changes
// and consumed exactly once on successful settlement.
type IntentHandle struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	AmountMinor  int64  `json:"amount_minor"`
}

// ConfirmStatus is the processor's verdict on a capture attempt.
type ConfirmStatus string

const (
	// ConfirmSucceeded means the charge captured.
	ConfirmSucceeded ConfirmStatus = "succeeded"
	// ConfirmRequiresAction means the processor needs the customer to
	// complete a step-up (3DS etc). Not a failure.
	ConfirmRequiresAction ConfirmStatus = "requires_action"
	// ConfirmDeclined means the processor rejected the capture.
	ConfirmDeclined ConfirmStatus = "declined"
)

type ConfirmResult struct {
	Status  ConfirmStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}
