package memory

import (
	"context"
	"sync"
	"time"

	"github.com/uniedit/enhancer/internal/port/outbound"
)

type kvEntry struct {
	value     string
	expiresAt time.Time
}

// KVStore is an in-process KVStorePort for local runs and tests.
type KVStore struct {
	mu      sync.RWMutex
	entries map[string]kvEntry
	now     func() time.Time
}

// NewKVStore creates an empty store.
func NewKVStore() *KVStore {
	return &KVStore{entries: make(map[string]kvEntry), now: time.Now}
}

// WithClock replaces the clock used for expiry checks.
func (s *KVStore) WithClock(now func() time.Time) *KVStore {
	s.now = now
	return s
}

// Get returns the value for key.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || (!e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)) {
		return "", outbound.ErrKeyNotFound
	}
	return e.value, nil
}

// Put stores value under key. A zero ttl never expires.
func (s *KVStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := kvEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

// TTL returns the remaining lifetime of key, or zero when it never expires.
func (s *KVStore) TTL(key string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	if e.expiresAt.IsZero() {
		return 0, true
	}
	return e.expiresAt.Sub(s.now()), true
}

var _ outbound.KVStorePort = (*KVStore)(nil)
