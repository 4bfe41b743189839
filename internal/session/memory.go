package session

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is a size-bounded LRU of sessions with TTL expiration.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *entry]
	ttl   time.Duration
	now   func() time.Time

	hits, misses, evicted uint64
}

type entry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore creates a store holding at most size sessions. A zero ttl never expires.
func NewMemoryStore(size int, ttl time.Duration) (*MemoryStore, error) {
	cache, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache, ttl: ttl, now: time.Now}, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{session: *s}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	if m.cache.Add(s.ID, e) {
		m.evicted++
	}
	return nil
}

// Get returns a copy of the session. The table itself is shared and must not be modified.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.cache.Get(id)
	if !ok {
		m.misses++
		return nil, ErrSessionNotFound
	}
	if m.ttl > 0 && m.now().After(e.expiresAt) {
		m.cache.Remove(id)
		m.misses++
		return nil, ErrSessionNotFound
	}
	m.hits++
	s := e.session
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(id)
	return nil
}

// Len returns the number of cached sessions, expired ones included until touched.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Stats returns hit, miss and eviction counters.
func (m *MemoryStore) Stats() (hits, misses, evicted uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses, m.evicted
}
