package cartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ferndesk/portal-checkout/domain"
)

// HTTPBuilder calls the recommendation service to assemble a cart.
type HTTPBuilder struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBuilder(baseURL string, client *http.Client) *HTTPBuilder {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBuilder{baseURL: baseURL, client: client}
}

func (b *HTTPBuilder) BuildCart(ctx context.Context, clientID, tier string) ([]domain.CartItem, error) {
	url := fmt.Sprintf("%s/clients/%s/tiers/%s/cart", b.baseURL, clientID, tier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build cart request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cart builder call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCartNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cart builder returned status %d", resp.StatusCode)
	}

	var items []domain.CartItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}
	return items, nil
}
