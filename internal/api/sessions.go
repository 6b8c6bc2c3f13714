package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ferndesk/portal-checkout/domain"
	"github.com/ferndesk/portal-checkout/internal/checkout"
)

// DefaultSessionTTL is how long an untouched checkout survives before the
// janitor evicts it.
const DefaultSessionTTL = 2 * time.Hour

// SessionFactory builds a fresh checkout session for a client and tier.
type SessionFactory func(clientID, tier string) *checkout.Session

type sessionEntry struct {
	session  *checkout.Session
	lastSeen time.Time
}

// Registry holds live checkout sessions keyed client+tier. One checkout at a
// time per pairing; a terminal session is replaced on the next start, and
// abandoned sessions are evicted once they go untouched past the TTL.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	factory  SessionFactory
	ttl      time.Duration
	now      func() time.Time
}

func NewRegistry(factory SessionFactory, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
	}
}

func registryKey(clientID, tier string) string {
	return fmt.Sprintf("%s:%s", clientID, tier)
}

// Start returns the existing live session or creates one.
func (r *Registry) Start(clientID, tier string) *checkout.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(clientID, tier)
	if entry, ok := r.sessions[key]; ok && !entry.session.State().IsTerminal() {
		entry.lastSeen = r.now()
		return entry.session
	}
	session := r.factory(clientID, tier)
	r.sessions[key] = &sessionEntry{session: session, lastSeen: r.now()}
	return session
}

// Get returns the session for a client and tier, or nil.
func (r *Registry) Get(clientID, tier string) *checkout.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[registryKey(clientID, tier)]
	if !ok {
		return nil
	}
	entry.lastSeen = r.now()
	return entry.session
}

// Abandon drops the session for a client and tier, if any.
func (r *Registry) Abandon(clientID, tier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, registryKey(clientID, tier))
}

// Sweep evicts every session that is terminal or untouched past the TTL,
// returning how many were dropped. Sessions mid settlement are kept no
// matter how old; their side effects may still be retried.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	dropped := 0
	for key, entry := range r.sessions {
		state := entry.session.State()
		if state.IsTerminal() {
			delete(r.sessions, key)
			dropped++
			continue
		}
		if state != domain.StateSettled && entry.lastSeen.Before(cutoff) {
			delete(r.sessions, key)
			dropped++
		}
	}
	return dropped
}

// RunJanitor sweeps periodically until the context is cancelled.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
