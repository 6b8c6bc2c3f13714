package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferndesk/portal-checkout/domain"
	"github.com/ferndesk/portal-checkout/internal/cartstore"
	"github.com/ferndesk/portal-checkout/internal/checkout"
	"github.com/ferndesk/portal-checkout/internal/coupon"
	"github.com/ferndesk/portal-checkout/internal/intent"
)

// fakeProcessor implements processor.Processor for handler tests
type fakeProcessor struct {
	mu     sync.Mutex
	nextID int
}

func (f *fakeProcessor) CreateAuthorization(_ context.Context, amountMinor int64, _ string, _ map[string]string) (*domain.IntentHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("auth_%d", f.nextID)
	return &domain.IntentHandle{ID: id, ClientSecret: id + "_secret", AmountMinor: amountMinor}, nil
}

func (f *fakeProcessor) CancelAuthorization(context.Context, string) error {
	return nil
}

func (f *fakeProcessor) Confirm(context.Context, string) (*domain.ConfirmResult, error) {
	return &domain.ConfirmResult{Status: domain.ConfirmSucceeded}, nil
}

type fakeCRM struct{}

func (fakeCRM) UpdateLifecycleStage(context.Context, string, string) error { return nil }

type fakeLedger struct {
	mu       sync.Mutex
	recorded []*domain.Settlement
}

func (f *fakeLedger) RecordSettlement(_ context.Context, s *domain.Settlement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, s)
	return nil
}

type staticLoader struct {
	items []domain.CartItem
}

func (l staticLoader) Load(context.Context, cartstore.Key) ([]domain.CartItem, error) {
	return l.items, nil
}

func setupRouter(t *testing.T, items []domain.CartItem) (*chi.Mux, *fakeLedger) {
	t.Helper()
	ledger := &fakeLedger{}
	lookup := coupon.NewStaticLookup(map[string]int{"WELCOME10": 10})

	factory := func(clientID, tier string) *checkout.Session {
		return checkout.NewSession(clientID, tier, "USD", checkout.Deps{
			Carts:   staticLoader{items: items},
			Coupons: coupon.NewEngine(lookup),
			Intents: intent.NewOrchestrator(&fakeProcessor{}, "USD", zerolog.Nop()),
			CRM:     fakeCRM{},
			Ledger:  ledger,
			Logger:  zerolog.Nop(),
		})
	}

	handler := NewCheckoutHandler(NewRegistry(factory, DefaultSessionTTL), 5*time.Second)
	router := chi.NewRouter()
	handler.Routes(router)
	return router, ledger
}

func cartItems() []domain.CartItem {
	return []domain.CartItem{
		{
			ID:       "seo-pro",
			Name:     "SEO Pro",
			Quantity: 1,
			Billing:  domain.MonthlyBilling{Price: decimal.RequireFromString("1197")},
		},
	}
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStart_ReturnsQuote(t *testing.T) {
	router, _ := setupRouter(t, cartItems())

	rec := doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/", nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StateQuoteReady, resp.State)
	assert.True(t, resp.Quote.DueToday.Equal(decimal.RequireFromString("1197")))
	assert.Len(t, resp.Items, 1)
}

func TestStart_EmptyCart(t *testing.T) {
	router, _ := setupRouter(t, nil)

	rec := doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/", nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "empty_cart", resp.Code)
}

func TestAbandon_DropsSession(t *testing.T) {
	router, _ := setupRouter(t, cartItems())

	rec := doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/checkout/client-1/growth/", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/checkout/client-1/growth/", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplyCoupon_UpdatesQuote(t *testing.T) {
	router, _ := setupRouter(t, cartItems())
	doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/", nil)

	rec := doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/coupon", CouponRequestDTO{Code: "welcome10"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Quote.FinalDueToday.Equal(decimal.RequireFromString("1077")))
	require.NotNil(t, resp.Coupon)
	assert.Equal(t, "WELCOME10", resp.Coupon.Code)
}

func TestApplyCoupon_Invalid(t *testing.T) {
	router, _ := setupRouter(t, cartItems())
	doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/", nil)

	rec := doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/coupon", CouponRequestDTO{Code: "NOPE"})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_coupon", resp.Code)
}

func TestCoupon_NoSession(t *testing.T) {
	router, _ := setupRouter(t, cartItems())

	rec := doJSON(t, router, http.MethodPost, "/checkout/client-9/growth/coupon", CouponRequestDTO{Code: "WELCOME10"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFullCheckoutFlow(t *testing.T) {
	router, ledger := setupRouter(t, cartItems())

	rec := doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/payment-method", PaymentMethodRequestDTO{Method: "new_card"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/card-capture", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var capture CardCaptureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &capture))
	assert.Equal(t, domain.StateCardCapturePending, capture.State)
	require.NotNil(t, capture.Handle)
	assert.Equal(t, int64(119700), capture.Handle.AmountMinor)

	rec = doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var confirm ConfirmResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &confirm))
	assert.Equal(t, domain.StatePostSettlement, confirm.State)
	assert.Equal(t, domain.ConfirmSucceeded, confirm.Result.Status)

	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	require.Len(t, ledger.recorded, 1)
	assert.Equal(t, "client-1", ledger.recorded[0].ClientID)
}

func TestSelectPaymentMethod_Invalid(t *testing.T) {
	router, _ := setupRouter(t, cartItems())
	doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/", nil)

	rec := doJSON(t, router, http.MethodPost, "/checkout/client-1/growth/payment-method", PaymentMethodRequestDTO{Method: "wire_transfer"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
