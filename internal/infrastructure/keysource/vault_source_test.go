package keysource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/pkg/logger"
)

func newVaultServer(t *testing.T, data map[string]interface{}, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if r.URL.Path != "/v1/secret/data/authcore/signing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data": data,
				"metadata": map[string]interface{}{
					"created_time":  "2024-01-01T00:00:00Z",
					"deletion_time": "",
					"destroyed":     false,
					"version":       1,
				},
			},
		})
	}))
}

func newVaultSource(t *testing.T, addr, path string) *VaultSource {
	t.Helper()
	cfg := config.VaultConfig{Address: addr, Token: "test-token", MountPath: "secret", SecretPath: path}
	client, err := NewVaultClient(cfg)
	require.NoError(t, err)
	return NewVaultSource(client, cfg, false, logger.NewNoopLogger())
}

func TestVaultSource_ReadsCurrentAndPrevious(t *testing.T) {
	hits := 0
	srv := newVaultServer(t, map[string]interface{}{
		"current":  "current-key-value",
		"previous": "old-1, old-2\nold-3",
	}, &hits)
	defer srv.Close()

	src := newVaultSource(t, srv.URL, "authcore/signing")
	value, ok, err := src.CurrentKeyValue(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "current-key-value", value)

	old, err := src.OldKeyValues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"old-1", "old-2", "old-3"}, old)
	assert.Equal(t, 1, hits, "secret should be read once per load")
	assert.False(t, src.IsDebugMode())
}

func TestVaultSource_PreviousAsList(t *testing.T) {
	hits := 0
	srv := newVaultServer(t, map[string]interface{}{
		"current":  "current-key-value",
		"previous": []interface{}{"old-1", " ", "old-2"},
	}, &hits)
	defer srv.Close()

	old, err := newVaultSource(t, srv.URL, "authcore/signing").OldKeyValues(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"old-1", "old-2"}, old)
}

func TestVaultSource_MissingSecret(t *testing.T) {
	hits := 0
	srv := newVaultServer(t, nil, &hits)
	defer srv.Close()

	src := newVaultSource(t, srv.URL, "authcore/absent")
	value, ok, err := src.CurrentKeyValue(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestVaultSource_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
	}))
	defer srv.Close()

	_, _, err := newVaultSource(t, srv.URL, "authcore/signing").CurrentKeyValue(context.Background())
	assert.Error(t, err)
}
