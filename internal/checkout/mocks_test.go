package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ferndesk/portal-checkout/domain"
	"github.com/ferndesk/portal-checkout/internal/cartstore"
	"github.com/ferndesk/portal-checkout/internal/coupon"
	"github.com/ferndesk/portal-checkout/internal/intent"
)

// MockCartLoader implements CartLoader for testing
type MockCartLoader struct {
	Items []domain.CartItem
	Err   error
}

func (m *MockCartLoader) Load(_ context.Context, _ cartstore.Key) ([]domain.CartItem, error) {
	return m.Items, m.Err
}

// MockProcessor implements processor.Processor for testing
type MockProcessor struct {
	mu sync.Mutex

	CreateErr    error
	ConfirmRes   *domain.ConfirmResult
	ConfirmErr   error
	ConfirmBlock chan struct{} // when set, Confirm blocks until closed
	CreateCalls  int
	ConfirmCalls int
	Cancelled    []string
	Live         map[string]int64 // handle id -> amount, open authorizations
	nextID       int
}

func (m *MockProcessor) CreateAuthorization(_ context.Context, amountMinor int64, _ string, _ map[string]string) (*domain.IntentHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.nextID++
	id := fmt.Sprintf("auth_%d", m.nextID)
	if m.Live == nil {
		m.Live = make(map[string]int64)
	}
	m.Live[id] = amountMinor
	return &domain.IntentHandle{ID: id, ClientSecret: id + "_secret", AmountMinor: amountMinor}, nil
}

func (m *MockProcessor) CancelAuthorization(_ context.Context, handleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, handleID)
	delete(m.Live, handleID)
	return nil
}

func (m *MockProcessor) Confirm(_ context.Context, handleID string) (*domain.ConfirmResult, error) {
	m.mu.Lock()
	m.ConfirmCalls++
	block := m.ConfirmBlock
	m.mu.Unlock()

	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConfirmErr != nil {
		return nil, m.ConfirmErr
	}
	if m.ConfirmRes != nil {
		if m.ConfirmRes.Status == domain.ConfirmSucceeded {
			delete(m.Live, handleID)
		}
		return m.ConfirmRes, nil
	}
	delete(m.Live, handleID)
	return &domain.ConfirmResult{Status: domain.ConfirmSucceeded}, nil
}

func (m *MockProcessor) ConfirmCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ConfirmCalls
}

func (m *MockProcessor) LiveHandles() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.Live))
	for id, amount := range m.Live {
		out[id] = amount
	}
	return out
}

// MockCRM implements LifecycleUpdater for testing
type MockCRM struct {
	Err    error
	Stages []string // appended per call
}

func (m *MockCRM) UpdateLifecycleStage(_ context.Context, _, stage string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Stages = append(m.Stages, stage)
	return nil
}

// MockLedger implements SettlementRecorder for testing
type MockLedger struct {
	Err      error
	Recorded []*domain.Settlement
}

func (m *MockLedger) RecordSettlement(_ context.Context, settlement *domain.Settlement) error {
	if m.Err != nil {
		return m.Err
	}
	m.Recorded = append(m.Recorded, settlement)
	return nil
}

// MutableLookup implements coupon.Lookup with codes that can be withdrawn
// mid-checkout.
type MutableLookup struct {
	mu    sync.Mutex
	codes map[string]int
}

func (l *MutableLookup) Lookup(_ context.Context, code string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	percent, ok := l.codes[code]
	if !ok {
		return 0, coupon.ErrCouponNotFound
	}
	return percent, nil
}

func (l *MutableLookup) Withdraw(code string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.codes, code)
}

type sessionFixture struct {
	session *Session
	proc    *MockProcessor
	crm     *MockCRM
	ledger  *MockLedger
	lookup  *MutableLookup
}

func newFixture(items []domain.CartItem) *sessionFixture {
	proc := &MockProcessor{}
	crm := &MockCRM{}
	ledger := &MockLedger{}
	lookup := &MutableLookup{codes: map[string]int{
		"WELCOME10": 10,
		"COMP100":   100,
	}}

	session := NewSession("client-1", "growth", "USD", Deps{
		Carts:   &MockCartLoader{Items: items},
		Coupons: coupon.NewEngine(lookup),
		Intents: intent.NewOrchestrator(proc, "USD", zerolog.Nop()),
		CRM:     crm,
		Ledger:  ledger,
		Logger:  zerolog.Nop(),
	})

	return &sessionFixture{session: session, proc: proc, crm: crm, ledger: ledger, lookup: lookup}
}
