package checkout

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ferndesk/portal-checkout/domain"
	"github.com/ferndesk/portal-checkout/internal/cartstore"
	"github.com/ferndesk/portal-checkout/internal/coupon"
	"github.com/ferndesk/portal-checkout/internal/intent"
	"github.com/ferndesk/portal-checkout/internal/pricing"
)

// lifecycleStageActive is written to the client record once settlement lands.
const lifecycleStageActive = "active"

// CartLoader resolves the cart for a client and tier. The session treats the
// items as read-only input.
type CartLoader interface {
	Load(ctx context.Context, key cartstore.Key) ([]domain.CartItem, error)
}

// LifecycleUpdater is the external client-record system.
type LifecycleUpdater interface {
	UpdateLifecycleStage(ctx context.Context, clientID, stage string) error
}

// SettlementRecorder persists a settlement and queues its onboarding handoff.
type SettlementRecorder interface {
	RecordSettlement(ctx context.Context, settlement *domain.Settlement) error
}

// Session drives one client's checkout from cart load to post-settlement.
// All pricing is recomputed synchronously on every change; the only async
// work is the processor round trip, which the intent orchestrator serializes.
type Session struct {
	clientID string
	tier     string
	currency string

	carts   CartLoader
	coupons *coupon.Engine
	intents *intent.Orchestrator
	crm     LifecycleUpdater
	ledger  SettlementRecorder
	logger  zerolog.Logger

	mu         sync.Mutex
	state      domain.CheckoutState
	items      []domain.CartItem
	quote      domain.PaymentQuote
	discount   *domain.CouponDiscount
	method     domain.PaymentMethod
	settlement *domain.Settlement
}

type Deps struct {
	Carts   CartLoader
	Coupons *coupon.Engine
	Intents *intent.Orchestrator
	CRM     LifecycleUpdater
	Ledger  SettlementRecorder
	Logger  zerolog.Logger
}

func NewSession(clientID, tier, currency string, deps Deps) *Session {
	return &Session{
		clientID: clientID,
		tier:     tier,
		currency: currency,
		carts:    deps.Carts,
		coupons:  deps.Coupons,
		intents:  deps.Intents,
		crm:      deps.CRM,
		ledger:   deps.Ledger,
		logger:   deps.Logger.With().Str("client_id", clientID).Str("tier", tier).Logger(),
		state:    domain.StateLoading,
	}
}

// Load fetches the cart and computes the initial quote. An empty cart is a
// terminal branch: there is nothing to settle.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLoading {
		return domain.ErrIllegalTransition
	}

	items, err := s.carts.Load(ctx, cartstore.Key{ClientID: s.clientID, Tier: s.tier})
	if err != nil {
		// A load failure keeps the session in LOADING; the caller retries.
		return err
	}

	if len(items) == 0 {
		s.state = domain.StateEmptyCart
		return domain.ErrEmptyCart
	}

	s.items = items
	s.quote = pricing.Settle(pricing.Aggregate(items, s.currency), nil)
	s.state = domain.StateQuoteReady

	s.logger.Info().
		Str("due_today", s.quote.DueToday.String()).
		Int("items", len(items)).
		Msg("quote ready")
	return nil
}

func (s *Session) State() domain.CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Quote() domain.PaymentQuote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quote
}

// Items returns the cart as loaded. The cart is intentionally retained after
// settlement: the onboarding flow reads it downstream.
func (s *Session) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Session) AppliedCoupon() *domain.CouponDiscount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discount
}

func (s *Session) PaymentMethod() domain.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

// Handle exposes the live authorization handle for the capture surface.
func (s *Session) Handle() *domain.IntentHandle {
	return s.intents.Handle()
}

func (s *Session) intentMetadata() map[string]string {
	return map[string]string{
		"client_id": s.clientID,
		"tier":      s.tier,
	}
}
