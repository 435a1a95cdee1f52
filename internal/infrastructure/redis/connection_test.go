package redis

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/pkg/logger"
)

func hostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestConnection_Connect(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := hostPort(t, mr.Addr())

	conn := NewConnection(&Config{Host: host, Port: port}, logger.NewNoopLogger())
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Close() })

	require.NotNil(t, conn.GetClient())
	health, err := conn.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, health["connected"])
}

func TestConnection_UnsupportedModeBuildsNoClient(t *testing.T) {
	conn := NewConnection(&Config{Mode: "mesh"}, logger.NewNoopLogger())
	err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnreachable)
	assert.Nil(t, conn.GetClient())
}

// The client from a failed startup ping serves calls once Redis is back.
func TestConnection_RecoversAfterFailedStartupPing(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()
	host, port := hostPort(t, addr)

	conn := NewConnection(&Config{Host: host, Port: port, DialTimeout: 200 * time.Millisecond}, logger.NewNoopLogger())
	err = conn.Connect(context.Background())
	require.ErrorIs(t, err, ErrUnreachable)
	require.NotNil(t, conn.GetClient())
	t.Cleanup(func() { _ = conn.Close() })

	store := NewRevocationStore(conn.GetClient(), 500*time.Millisecond)
	_, err = store.Contains(context.Background(), "jti-1")
	assert.Error(t, err)

	revived := miniredis.NewMiniRedis()
	require.NoError(t, revived.StartAddr(addr))
	t.Cleanup(revived.Close)

	require.NoError(t, store.Add(context.Background(), "jti-1", time.Minute))
	ok, err := store.Contains(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
