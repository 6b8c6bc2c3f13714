package cartstore

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ferndesk/portal-checkout/domain"
)

// Builder is the external recommendation/cart builder. It assembles the
// line items for a client and tier when no stored session cart exists.
type Builder interface {
	BuildCart(ctx context.Context, clientID, tier string) ([]domain.CartItem, error)
}

// Loader resolves a cart from the session store, falling back to the
// builder on a miss. Concurrent loads for the same key are collapsed with
// singleflight so a burst of page loads builds the cart once.
type Loader struct {
	store   Store
	builder Builder
	logger  zerolog.Logger
	sfg     singleflight.Group
}

func NewLoader(store Store, builder Builder, logger zerolog.Logger) *Loader {
	return &Loader{
		store:   store,
		builder: builder,
		logger:  logger,
	}
}

func (l *Loader) Load(ctx context.Context, key Key) ([]domain.CartItem, error) {
	v, err, _ := l.sfg.Do(key.String(), func() (interface{}, error) {

		items, err := l.store.Get(ctx, key)
		if err == nil {
			return items, nil // cart is in the session store
		}

		if !errors.Is(err, ErrCartNotFound) {
			l.logger.Warn().Err(err).Str("key", key.String()).Msg("cart store get error")
		}

		built, errBuild := l.builder.BuildCart(ctx, key.ClientID, key.Tier)
		if errBuild != nil {
			return nil, errBuild
		}

		// store the built cart for the rest of the session
		go func() {
			errSet := l.store.Set(context.Background(), key, built)
			if errSet != nil {
				l.logger.Warn().Err(errSet).Str("key", key.String()).Msg("cart store set error")
			}
		}()

		return built, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.CartItem), nil
}
