package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ferndesk/portal-checkout/domain"
)

// HTTPClient talks to the processor's REST API. All calls go through a
// circuit breaker so a processor outage fails fast instead of stacking up
// blocked checkouts.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	settings := gobreaker.Settings{
		Name:        "payment-processor",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

type createAuthorizationRequest struct {
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type confirmResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (c *HTTPClient) CreateAuthorization(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*domain.IntentHandle, error) {
	body, err := c.post(ctx, "/v1/authorizations", createAuthorizationRequest{
		AmountMinor: amountMinor,
		Currency:    currency,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentSetup, err)
	}

	var handle domain.IntentHandle
	if err := json.Unmarshal(body, &handle); err != nil {
		return nil, fmt.Errorf("%w: decode authorization response: %v", domain.ErrPaymentSetup, err)
	}
	if handle.ID == "" {
		return nil, fmt.Errorf("%w: processor returned no authorization id", domain.ErrPaymentSetup)
	}
	return &handle, nil
}

func (c *HTTPClient) CancelAuthorization(ctx context.Context, handleID string) error {
	_, err := c.post(ctx, fmt.Sprintf("/v1/authorizations/%s/cancel", handleID), nil)
	if err != nil {
		return fmt.Errorf("cancel authorization %s: %w", handleID, err)
	}
	return nil
}

func (c *HTTPClient) Confirm(ctx context.Context, handleID string) (*domain.ConfirmResult, error) {
	body, err := c.post(ctx, fmt.Sprintf("/v1/authorizations/%s/confirm", handleID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentSetup, err)
	}

	var resp confirmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode confirm response: %v", domain.ErrPaymentSetup, err)
	}

	switch domain.ConfirmStatus(resp.Status) {
	case domain.ConfirmSucceeded, domain.ConfirmRequiresAction, domain.ConfirmDeclined:
		return &domain.ConfirmResult{Status: domain.ConfirmStatus(resp.Status), Message: resp.Message}, nil
	default:
		return nil, fmt.Errorf("%w: unknown confirm status %q", domain.ErrPaymentSetup, resp.Status)
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			reqBody = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reqBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("processor returned status %d: %s", resp.StatusCode, string(body))
		}
		return body, nil
	})
}
