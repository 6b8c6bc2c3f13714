package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ferndesk/portal-checkout/domain"
)

// finalize runs the post-settlement side effects: move the client's
// lifecycle stage, then record the settlement, which queues the onboarding
// handoff. The SETTLED -> POST_SETTLEMENT transition fires exactly once; a
// failed side effect keeps the session in SETTLED so only the side effects
// are retried, never the charge. The cart is not cleared because the
// onboarding flow still reads it.
func (s *Session) finalize(ctx context.Context) error {
	s.mu.Lock()

	if s.state == domain.StatePostSettlement {
		s.mu.Unlock()
		return nil
	}
	if !domain.CanTransitionTo(s.state, domain.StatePostSettlement) {
		s.mu.Unlock()
		return domain.ErrIllegalTransition
	}

	if s.settlement == nil {
		s.settlement = &domain.Settlement{
			ID:          uuid.NewString(),
			ClientID:    s.clientID,
			Tier:        s.tier,
			FinalAmount: s.quote.FinalDueToday,
			Currency:    s.currency,
			Items:       s.items,
			SettledAt:   time.Now().UTC(),
		}
	}
	settlement := s.settlement
	s.mu.Unlock()

	// The lifecycle update is idempotent on the CRM side, so a retry after a
	// ledger failure repeating it is harmless.
	if err := s.crm.UpdateLifecycleStage(ctx, s.clientID, lifecycleStageActive); err != nil {
		return fmt.Errorf("update lifecycle stage: %w", err)
	}

	if err := s.ledger.RecordSettlement(ctx, settlement); err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}

	s.mu.Lock()
	s.state = domain.StatePostSettlement
	s.mu.Unlock()

	s.logger.Info().
		Str("settlement_id", settlement.ID).
		Str("final_amount", settlement.FinalAmount.String()).
		Msg("post-settlement handoff queued")
	return nil
}
