// Package userstore decorates a UserStore with a short-lived in-process cache.
package userstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/logger"
)

const cacheType = "user"

// CachedStore caches successful primary lookups for ttl and collapses concurrent
// lookups of the same subject into one backend call. Not-found and failed lookups
// are never cached, and LookupSimplified always reaches the backend.
type CachedStore struct {
	next    service.UserStore
	l1      *cache.Cache
	sf      singleflight.Group
	metrics service.Metrics
	logger  logger.Logger
}

// NewCachedStore wraps next. A non-positive ttl disables caching but keeps request collapsing.
func NewCachedStore(next service.UserStore, ttl time.Duration, metrics service.Metrics, log logger.Logger) *CachedStore {
	s := &CachedStore{
		next:    next,
		metrics: metrics,
		logger:  log.WithComponent("CachedUserStore"),
	}
	if ttl > 0 {
		s.l1 = cache.New(ttl, 2*ttl)
	}
	return s
}

// Lookup serves from the cache when possible.
func (s *CachedStore) Lookup(ctx context.Context, subject string) (*models.UserRecord, error) {
	if s.l1 != nil {
		if v, found := s.l1.Get(subject); found {
			s.metrics.RecordCacheAccess(cacheType, true)
			return copyUser(v.(*models.UserRecord)), nil
		}
		s.metrics.RecordCacheAccess(cacheType, false)
	}

	v, err, shared := s.sf.Do(subject, func() (interface{}, error) {
		user, err := s.next.Lookup(ctx, subject)
		if err != nil {
			return nil, err
		}
		if s.l1 != nil && user != nil {
			s.l1.SetDefault(subject, user)
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug(ctx, "User lookup collapsed", logger.String("subject", subject))
	}
	user, _ := v.(*models.UserRecord)
	if user == nil {
		return nil, nil
	}
	return copyUser(user), nil
}

// LookupSimplified bypasses the cache.
func (s *CachedStore) LookupSimplified(ctx context.Context, subject string) (*models.UserRecord, error) {
	return s.next.LookupSimplified(ctx, subject)
}

// copyUser returns a copy that shares no slices with the cached entry.
func copyUser(u *models.UserRecord) *models.UserRecord {
	out := *u
	if u.Roles != nil {
		out.Roles = append([]models.Role(nil), u.Roles...)
	}
	return &out
}
