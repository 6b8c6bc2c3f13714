package intent

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ferndesk/portal-checkout/domain"
	"github.com/ferndesk/portal-checkout/internal/pricing"
	"github.com/ferndesk/portal-checkout/internal/processor"
)

// Orchestrator keeps at most one live, amount-matching authorization handle
// with the processor per checkout session. A handle is reused while the
// amount holds, superseded when it moves, and consumed exactly once on
// settlement. Only one authorization request is ever in flight; results of
// a request that outlived its amount are discarded, never applied.
type Orchestrator struct {
	proc     processor.Processor
	currency string
	logger   zerolog.Logger

	mu       sync.Mutex
	handle   *domain.IntentHandle
	inFlight bool
	gen      uint64 // bumped on every invalidation; stale results detect it
}

func NewOrchestrator(proc processor.Processor, currency string, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		proc:     proc,
		currency: currency,
		logger:   logger,
	}
}

// Handle returns the current live handle, or nil.
func (o *Orchestrator) Handle() *domain.IntentHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handle
}

// EnsureIntent returns a handle valid for amount, creating one if the
// current handle is missing or bound to a different amount. A zero amount
// is a no-op: zero-total settlements never touch the processor.
func (o *Orchestrator) EnsureIntent(ctx context.Context, amount decimal.Decimal, metadata map[string]string) (*domain.IntentHandle, error) {
	minor := pricing.MinorUnits(amount)
	if minor == 0 {
		return nil, nil
	}

	o.mu.Lock()
	if o.handle != nil && o.handle.AmountMinor == minor {
		handle := o.handle
		o.mu.Unlock()
		return handle, nil
	}
	if o.inFlight {
		o.mu.Unlock()
		return nil, domain.ErrAuthorizationInFlight
	}
	o.inFlight = true
	gen := o.gen
	stale := o.handle
	o.handle = nil
	o.mu.Unlock()

	if stale != nil {
		o.cancel(ctx, stale.ID)
	}

	handle, err := o.proc.CreateAuthorization(ctx, minor, o.currency, metadata)

	o.mu.Lock()
	o.inFlight = false
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if o.gen != gen {
		// The total moved while the request was out. The result no longer
		// matches the session and must not be applied.
		o.mu.Unlock()
		o.cancel(ctx, handle.ID)
		return nil, domain.ErrIntentSuperseded
	}
	o.handle = handle
	o.mu.Unlock()

	o.logger.Debug().Str("handle_id", handle.ID).Int64("amount_minor", minor).Msg("authorization handle issued")
	return handle, nil
}

// Invalidate discards the current handle, cancelling it processor-side on a
// best-effort basis. Called whenever the final due-today amount changes.
func (o *Orchestrator) Invalidate(ctx context.Context) {
	o.mu.Lock()
	o.gen++
	stale := o.handle
	o.handle = nil
	o.mu.Unlock()

	if stale != nil {
		o.cancel(ctx, stale.ID)
	}
}

// Confirm submits the capture for the current handle and, on success,
// consumes it so it can never be captured twice. The in-flight guard covers
// capture as well as creation: a second Confirm while one is already out is
// rejected, so concurrent submissions can never both reach the processor.
func (o *Orchestrator) Confirm(ctx context.Context) (*domain.ConfirmResult, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, domain.ErrAuthorizationInFlight
	}
	handle := o.handle
	if handle == nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: no authorization handle to confirm", domain.ErrPaymentSetup)
	}
	o.inFlight = true
	o.mu.Unlock()

	result, err := o.proc.Confirm(ctx, handle.ID)

	o.mu.Lock()
	o.inFlight = false
	if err == nil && result.Status == domain.ConfirmSucceeded {
		o.handle = nil
	}
	o.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) cancel(ctx context.Context, handleID string) {
	if err := o.proc.CancelAuthorization(ctx, handleID); err != nil {
		o.logger.Warn().Err(err).Str("handle_id", handleID).Msg("failed to cancel superseded authorization")
	}
}
