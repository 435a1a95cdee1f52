package userstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service/mocks"
	"github.com/turtacn/authcore/internal/infrastructure/monitoring"
	apperrors "github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

type slowStore struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowStore) Lookup(ctx context.Context, subject string) (*models.UserRecord, error) {
	s.calls.Add(1)
	<-s.release
	return &models.UserRecord{ID: 1, Username: subject, IsActive: true}, nil
}

func (s *slowStore) LookupSimplified(ctx context.Context, subject string) (*models.UserRecord, error) {
	return nil, apperrors.ErrUserNotFound
}

func TestCachedStore_CachesHits(t *testing.T) {
	backend := new(mocks.MockUserStore)
	backend.On("Lookup", mock.Anything, "1").Return(&models.UserRecord{ID: 1, IsActive: true}, nil).Once()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	store := NewCachedStore(backend, time.Minute, metrics, logger.NewNoopLogger())

	for i := 0; i < 3; i++ {
		user, err := store.Lookup(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, uint(1), user.ID)
	}

	backend.AssertNumberOfCalls(t, "Lookup", 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheAccess.WithLabelValues("user", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheAccess.WithLabelValues("user", "miss")))
}

func TestCachedStore_ReturnsCopies(t *testing.T) {
	backend := new(mocks.MockUserStore)
	backend.On("Lookup", mock.Anything, "1").Return(&models.UserRecord{ID: 1, IsActive: true}, nil).Once()
	store := NewCachedStore(backend, time.Minute, monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger())

	first, err := store.Lookup(context.Background(), "1")
	require.NoError(t, err)
	first.IsActive = false

	second, err := store.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, second.IsActive)
}

func TestCachedStore_DoesNotCacheFailures(t *testing.T) {
	backend := new(mocks.MockUserStore)
	backend.On("Lookup", mock.Anything, "404").Return(nil, apperrors.ErrUserNotFound).Twice()
	backend.On("Lookup", mock.Anything, "500").Return(nil, errors.New("db down")).Twice()
	store := NewCachedStore(backend, time.Minute, monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger())

	for i := 0; i < 2; i++ {
		_, err := store.Lookup(context.Background(), "404")
		assert.True(t, apperrors.Is(err, apperrors.ErrUserNotFound))
		_, err = store.Lookup(context.Background(), "500")
		assert.EqualError(t, err, "db down")
	}
	backend.AssertExpectations(t)
}

func TestCachedStore_SimplifiedIsNotCached(t *testing.T) {
	backend := new(mocks.MockUserStore)
	backend.On("Lookup", mock.Anything, "1").Return(&models.UserRecord{ID: 1, IsActive: true}, nil).Once()
	backend.On("LookupSimplified", mock.Anything, "1").Return(&models.UserRecord{ID: 1}, nil).Twice()
	store := NewCachedStore(backend, time.Minute, monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger())

	_, err := store.Lookup(context.Background(), "1")
	require.NoError(t, err)
	_, err = store.Lookup(context.Background(), "1")
	require.NoError(t, err)

	_, _ = store.LookupSimplified(context.Background(), "1")
	_, _ = store.LookupSimplified(context.Background(), "1")
	backend.AssertExpectations(t)
}

func TestCachedStore_CallersCannotMutateCachedRoles(t *testing.T) {
	backend := new(mocks.MockUserStore)
	backend.On("Lookup", mock.Anything, "1").Return(&models.UserRecord{
		ID:       1,
		IsActive: true,
		Roles:    []models.Role{{Name: "admin"}},
	}, nil).Once()
	store := NewCachedStore(backend, time.Minute, monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger())

	first, err := store.Lookup(context.Background(), "1")
	require.NoError(t, err)
	first.Roles[0].Name = "root"
	first.Roles = append(first.Roles, models.Role{Name: "extra"})

	second, err := store.Lookup(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, second.Roles, 1)
	assert.Equal(t, "admin", second.Roles[0].Name)
	backend.AssertExpectations(t)
}

func TestCachedStore_CollapsesConcurrentLookups(t *testing.T) {
	backend := &slowStore{release: make(chan struct{})}
	store := NewCachedStore(backend, 0, monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger())

	var wg sync.WaitGroup
	results := make(chan *models.UserRecord, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := store.Lookup(context.Background(), "alice")
			if err == nil {
				results <- user
			}
		}()
	}

	require.Eventually(t, func() bool { return backend.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), backend.calls.Load())
	close(backend.release)
	wg.Wait()
	close(results)

	count := 0
	for user := range results {
		assert.Equal(t, "alice", user.Username)
		count++
	}
	assert.Equal(t, 10, count)
}
