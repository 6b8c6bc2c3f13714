package cartstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferndesk/portal-checkout/domain"
)

type mockBuilder struct {
	mu    sync.Mutex
	items []domain.CartItem
	err   error
	calls int
}

func (b *mockBuilder) BuildCart(_ context.Context, _, _ string) ([]domain.CartItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls += 1
	return b.items, b.err
}

func TestLoader_ReturnsStoredCart(t *testing.T) {
	store := NewMemoryStore()
	builder := &mockBuilder{}
	loader := NewLoader(store, builder, zerolog.Nop())

	key := Key{ClientID: "client-1", Tier: "growth"}
	require.NoError(t, store.Set(context.Background(), key, testItems()))

	items, err := loader.Load(context.Background(), key)

	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 0, builder.calls, "builder must not run when a session cart exists")
}

func TestLoader_BuildsOnMiss(t *testing.T) {
	store := NewMemoryStore()
	builder := &mockBuilder{items: testItems()}
	loader := NewLoader(store, builder, zerolog.Nop())

	key := Key{ClientID: "client-2", Tier: "growth"}
	items, err := loader.Load(context.Background(), key)

	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, builder.calls)

	// The built cart is stored asynchronously for the rest of the session.
	assert.Eventually(t, func() bool {
		stored, errGet := store.Get(context.Background(), key)
		return errGet == nil && len(stored) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestLoader_BuilderFailure(t *testing.T) {
	store := NewMemoryStore()
	builder := &mockBuilder{err: errors.New("recommendation service down")}
	loader := NewLoader(store, builder, zerolog.Nop())

	items, err := loader.Load(context.Background(), Key{ClientID: "client-3", Tier: "starter"})

	assert.Error(t, err)
	assert.Nil(t, items)
}
