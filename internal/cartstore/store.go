package cartstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ferndesk/portal-checkout/domain"
)

// Key addresses one client's cart for one tier. Carts are session-scoped and
// keyed composite so switching tiers never bleeds items across quotes.
type Key struct {
	ClientID string
	Tier     string
}

func (k Key) String() string {
	return fmt.Sprintf("cart:%s:%s", k.ClientID, k.Tier)
}

// Store is the injected cart persistence. The pricing core never assumes
// where the cart physically lives.
type Store interface {
	Get(ctx context.Context, key Key) ([]domain.CartItem, error)
	Set(ctx context.Context, key Key, items []domain.CartItem) error
	Clear(ctx context.Context, key Key) error
}

var ErrCartNotFound = errors.New("cart not found")
