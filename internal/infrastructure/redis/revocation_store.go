package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
)

var _ service.RevocationStore = (*RevocationStore)(nil)

// RevocationStore is the shared revocation cache. Every call is bounded by timeout so a
// slow or unreachable Redis surfaces as an error quickly instead of blocking the request.
type RevocationStore struct {
	rdb     redis.UniversalClient
	timeout time.Duration
	prefix  string
}

// NewRevocationStore creates a store on rdb. A non-positive timeout uses the 200ms default.
func NewRevocationStore(rdb redis.UniversalClient, timeout time.Duration) *RevocationStore {
	if timeout <= 0 {
		timeout = constants.DefaultCacheTimeout
	}
	return &RevocationStore{rdb: rdb, timeout: timeout, prefix: constants.RevocationKeyPrefix}
}

func (s *RevocationStore) key(k string) string { return s.prefix + k }

// Add records key with ttl.
func (s *RevocationStore) Add(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.rdb.Set(ctx, s.key(key), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revocation set: %w", err)
	}
	return nil
}

// Contains reports whether key is recorded and not yet expired.
func (s *RevocationStore) Contains(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.rdb.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocation exists: %w", err)
	}
	return n == 1, nil
}
