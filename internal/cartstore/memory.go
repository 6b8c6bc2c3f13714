package cartstore

import (
	"context"
	"sync"

	"github.com/ferndesk/portal-checkout/domain"
)

// MemoryStore implements Store with in-memory storage, for tests and local
// development.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[Key][]domain.CartItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[Key][]domain.CartItem)}
}

func (s *MemoryStore) Get(_ context.Context, key Key) ([]domain.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.carts[key]
	if !ok {
		return nil, ErrCartNotFound
	}
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key Key, items []domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.CartItem, len(items))
	copy(stored, items)
	s.carts[key] = stored
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, key)
	return nil
}
