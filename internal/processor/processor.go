package processor

import (
	"context"

	"github.com/ferndesk/portal-checkout/domain"
)

// Processor is the remote payment platform. The engine only ever holds
// opaque amount-bound handles; raw card data never passes through here.
// Capture happens on the processor's own surface against the handle's
// client secret.
type Processor interface {
	// CreateAuthorization requests a new handle for the given amount in
	// minor currency units.
	CreateAuthorization(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*domain.IntentHandle, error)

	// CancelAuthorization voids a superseded handle. Best effort; a handle
	// that cannot be cancelled simply expires processor-side.
	CancelAuthorization(ctx context.Context, handleID string) error

	// Confirm submits the capture for a handle. Declines come back in the
	// result, not as an error; errors are transport or processor outages.
	Confirm(ctx context.Context, handleID string) (*domain.ConfirmResult, error)
}
