package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/authcore/internal/domain/service"
)

var _ service.RevocationStore = (*MemoryStore)(nil)

// MemoryStore is the in-process fallback used while the shared cache is unreachable.
// Entries remember their intended expiry but are never evicted; they live until the
// process restarts.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Add records key. ttl is kept as the intended expiry only.
func (s *MemoryStore) Add(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.now().Add(ttl)
	return nil
}

// Contains reports whether key was ever recorded.
func (s *MemoryStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok, nil
}

// Len returns the number of recorded keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
