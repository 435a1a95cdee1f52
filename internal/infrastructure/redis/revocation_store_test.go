package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/logger"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *RevocationStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRevocationStore(rdb, 0)
}

func TestRevocationStore_AddContains(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "jti-1", time.Minute))

	ok, err := store.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Contains(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists(constants.RevocationKeyPrefix+"jti-1"))
	assert.Equal(t, time.Minute, mr.TTL(constants.RevocationKeyPrefix+"jti-1"))
}

func TestRevocationStore_EntryExpires(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "jti-1", time.Minute))
	mr.FastForward(61 * time.Second)

	ok, err := store.Contains(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRevocationStore_Outage(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	mr.SetError("LOADING Redis is loading the dataset in memory")
	assert.Error(t, store.Add(ctx, "jti-1", time.Minute))
	_, err := store.Contains(ctx, "jti-1")
	assert.Error(t, err)

	mr.SetError("")
	assert.NoError(t, store.Add(ctx, "jti-1", time.Minute))
}

func TestRevocationStore_UnreachableIsBounded(t *testing.T) {
	mr, store := newTestStore(t)
	mr.Close()

	start := time.Now()
	_, err := store.Contains(context.Background(), "jti-1")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConnection_ConnectAndHealth(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	conn := NewConnection(&Config{Host: mr.Host(), Port: mustPort(t, mr)}, logger.NewNoopLogger())
	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Close()

	require.NotNil(t, conn.GetClient())
	health, err := conn.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, health["connected"])
}

func TestConnection_UnsupportedMode(t *testing.T) {
	conn := NewConnection(&Config{Mode: "mesh"}, logger.NewNoopLogger())
	assert.Error(t, conn.Connect(context.Background()))
	assert.Nil(t, conn.GetClient())
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	var port int
	_, err := fmt.Sscanf(mr.Port(), "%d", &port)
	require.NoError(t, err)
	return port
}
