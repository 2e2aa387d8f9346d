package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory cache backend.
// This is the default and is suitable for single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration

	now func() time.Time
}

type memoryEntry struct {
	value    []byte
	storedAt time.Time
}

// NewMemoryStore creates an in-memory store whose entries expire ttl after
// they were stored. A non-positive ttl disables caching entirely: every Get
// misses and Set is a no-op.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a value if it is younger than the TTL. An expired entry is
// deleted on the way out (lazy eviction) and reported as a miss.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if s.now().Sub(entry.storedAt) >= s.ttl {
		s.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry since the read above.
		if cur, ok := s.entries[key]; ok && s.now().Sub(cur.storedAt) >= s.ttl {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set stores a value with storedAt = now, overwriting any prior entry.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if s.ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, storedAt: s.now()}
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries currently held, including entries that
// have expired but not yet been touched.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
