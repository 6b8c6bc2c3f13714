package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ferndesk/portal-checkout/domain"
	"github.com/ferndesk/portal-checkout/internal/checkout"
)

type CheckoutHandler struct {
	registry *Registry
	timeout  time.Duration
}

func NewCheckoutHandler(registry *Registry, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		registry: registry,
		timeout:  timeout,
	}
}

func (h *CheckoutHandler) Routes(r chi.Router) {
	r.Route("/checkout/{clientID}/{tier}", func(r chi.Router) {
		r.Post("/", h.Start)
		r.Get("/", h.GetSession)
		r.Delete("/", h.Abandon)
		r.Post("/coupon", h.ApplyCoupon)
		r.Delete("/coupon", h.RemoveCoupon)
		r.Post("/payment-method", h.SelectPaymentMethod)
		r.Post("/card-capture", h.OpenCardCapture)
		r.Post("/confirm", h.Confirm)
		r.Post("/retry", h.Retry)
	})
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type SessionResponse struct {
	State         domain.CheckoutState   `json:"state"`
	Quote         domain.PaymentQuote    `json:"quote"`
	Coupon        *domain.CouponDiscount `json:"coupon,omitempty"`
	PaymentMethod domain.PaymentMethod   `json:"payment_method,omitempty"`
	Items         []domain.CartItem      `json:"items"`
}

type CouponRequestDTO struct {
	Code string `json:"code"`
}

type PaymentMethodRequestDTO struct {
	Method string `json:"method"`
}

type CardCaptureResponse struct {
	State  domain.CheckoutState `json:"state"`
	Handle *domain.IntentHandle `json:"handle,omitempty"`
}

type ConfirmResponse struct {
	State  domain.CheckoutState  `json:"state"`
	Result *domain.ConfirmResult `json:"result"`
}

func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	clientID, tier, ok := pathParams(w, r)
	if !ok {
		return
	}

	session := h.registry.Start(clientID, tier)
	if session.State() == domain.StateLoading {
		if err := session.Load(ctx); err != nil {
			respondCheckoutError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusCreated, sessionResponse(session))
}

func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req CouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if _, err := session.ApplyCoupon(ctx, req.Code); err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if _, err := session.RemoveCoupon(ctx); err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *CheckoutHandler) SelectPaymentMethod(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req PaymentMethodRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	method := domain.PaymentMethod(req.Method)
	if !method.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_method", "method must be card_on_file or new_card")
		return
	}

	if err := session.SelectPaymentMethod(method); err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(session))
}

func (h *CheckoutHandler) OpenCardCapture(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	handle, err := session.OpenCardCapture(ctx)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CardCaptureResponse{State: session.State(), Handle: handle})
}

func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	session, ok := h.session(w, r)
	if !ok {
		return
	}

	result, err := session.Confirm(ctx)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ConfirmResponse{State: session.State(), Result: result})
}

func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := session.Retry(); err != nil {
		respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(session))
}

// Abandon drops the session so a later start begins from a fresh cart load.
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	clientID, tier, ok := pathParams(w, r)
	if !ok {
		return
	}
	h.registry.Abandon(clientID, tier)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	clientID, tier, ok := pathParams(w, r)
	if !ok {
		return nil, false
	}
	session := h.registry.Get(clientID, tier)
	if session == nil {
		respondError(w, http.StatusNotFound, "no_session", "no checkout session for this client and tier")
		return nil, false
	}
	return session, true
}

func pathParams(w http.ResponseWriter, r *http.Request) (clientID, tier string, ok bool) {
	clientID = chi.URLParam(r, "clientID")
	tier = chi.URLParam(r, "tier")
	if clientID == "" || tier == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "client id and tier are required")
		return "", "", false
	}
	return clientID, tier, true
}

func sessionResponse(session *checkout.Session) SessionResponse {
	return SessionResponse{
		State:         session.State(),
		Quote:         session.Quote(),
		Coupon:        session.AppliedCoupon(),
		PaymentMethod: session.PaymentMethod(),
		Items:         session.Items(),
	}
}

func respondCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrEmptyCoupon):
		respondError(w, http.StatusBadRequest, "empty_coupon", err.Error())
	case errors.Is(err, domain.ErrInvalidCoupon):
		respondError(w, http.StatusUnprocessableEntity, "invalid_coupon", err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, domain.ErrPaymentDeclined):
		respondError(w, http.StatusPaymentRequired, "payment_declined", err.Error())
	case errors.Is(err, domain.ErrAuthorizationInFlight), errors.Is(err, domain.ErrIntentSuperseded):
		// The client re-triggers once the in-flight request lands.
		respondError(w, http.StatusConflict, "authorization_pending", err.Error())
	case errors.Is(err, domain.ErrPaymentSetup):
		respondError(w, http.StatusBadGateway, "payment_setup_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// headers already sent, nothing left to do
		return
	}
}

func respondError(w http.ResponseWriter, status int, code, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Details: details,
	})
}
