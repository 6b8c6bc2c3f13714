package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client updates client records on the CRM platform. Only the lifecycle
// stage field is written from checkout; everything else about the record is
// owned elsewhere.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type updateStageRequest struct {
	LifecycleStage string `json:"lifecycle_stage"`
}

func (c *Client) UpdateLifecycleStage(ctx context.Context, clientID, stage string) error {
	body, err := json.Marshal(updateStageRequest{LifecycleStage: stage})
	if err != nil {
		return fmt.Errorf("marshal stage update: %w", err)
	}

	url := fmt.Sprintf("%s/v1/clients/%s", c.baseURL, clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build stage update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("update lifecycle stage for %s: %w", clientID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("crm returned status %d for client %s", resp.StatusCode, clientID)
	}
	return nil
}
