package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("AUTHCORE_SERVER", "")
	t.Setenv("AUTHCORE_ADMIN_TOKEN", "")
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestKeyGenerate(t *testing.T) {
	out, err := run(t, "key", "generate")
	require.NoError(t, err)
	key := strings.TrimSpace(out)
	assert.Len(t, key, 43)
	assert.True(t, models.ValidateKeyMaterial(key, 32))

	out, err = run(t, "key", "generate", "--bytes", "64")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 86)

	_, err = run(t, "key", "generate", "--bytes", "0")
	assert.Error(t, err)
}

func TestKeyValidate(t *testing.T) {
	good := models.GenerateKeyMaterial(32).Value()

	out, err := run(t, "key", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	_, err = run(t, "key", "validate", "too-short")
	assert.ErrorContains(t, err, "at least 32 characters")

	_, err = run(t, "key", "validate", "abcdefgh", "--min-length", "4")
	assert.NoError(t, err)

	_, err = run(t, "key", "validate", strings.Repeat("!", 40))
	assert.Error(t, err)
}

type recordedRequest struct {
	method string
	path   string
	token  string
	body   map[string]interface{}
}

func adminServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, token: r.Header.Get(constants.HeaderAdminToken)}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		seen = append(seen, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestKeyRotate(t *testing.T) {
	srv, seen := adminServer(t, http.StatusOK, `{"new_key":"bmV3LWtleS12YWx1ZS1mb3ItdGVzdGluZy0xMjM0NTY3OA","new_key_preview":"bmV3LWtleS...","previous_key_preview":"b2xkLWtleS...","rotated_at":"2026-01-02T03:04:05Z","retained_old_key_count":2}`)

	out, err := run(t, "key", "rotate", "--server", srv.URL+"/", "--admin-token", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "b2xkLWtleS... -> bmV3LWtleS...")
	assert.Contains(t, out, "Retained old keys: 2")
	assert.Contains(t, out, "bmV3LWtleS12YWx1ZS1mb3ItdGVzdGluZy0xMjM0NTY3OA")

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/admin/keys/rotate", req.path)
	assert.Equal(t, "s3cret", req.token)
	assert.NotContains(t, req.body, "new_key")

	out, err = run(t, "key", "rotate", "--server", srv.URL, "--admin-token", "s3cret", "--new-key", "supplied-key-value")
	require.NoError(t, err)
	assert.NotContains(t, out, "not shown again")
	assert.Equal(t, "supplied-key-value", (*seen)[1].body["new_key"])
}

func TestKeyInfo(t *testing.T) {
	srv, _ := adminServer(t, http.StatusOK, `{"current_key_length":43,"current_key_preview":"abcdefghij...","old_keys_count":1,"last_rotated_at":null}`)

	out, err := run(t, "key", "info", "--server", srv.URL, "--admin-token", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "abcdefghij... (43 chars)")
	assert.Contains(t, out, "Retired keys:  1")
	assert.Contains(t, out, "never")

	out, err = run(t, "key", "info", "--server", srv.URL, "--admin-token", "s3cret", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"old_keys_count":1`)
}

func TestKeyCleanup(t *testing.T) {
	srv, seen := adminServer(t, http.StatusOK, `{"removed":3}`)

	out, err := run(t, "key", "cleanup", "--server", srv.URL, "--admin-token", "s3cret", "--grace-days", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 3 retired key(s)")
	assert.Equal(t, float64(7), (*seen)[0].body["grace_days"])

	_, err = run(t, "key", "cleanup", "--server", srv.URL, "--admin-token", "s3cret")
	require.NoError(t, err)
	assert.NotContains(t, (*seen)[1].body, "grace_days")

	_, err = run(t, "key", "cleanup", "--server", srv.URL, "--admin-token", "s3cret", "--grace-days", "0")
	require.NoError(t, err)
	assert.Equal(t, float64(0), (*seen)[2].body["grace_days"])
}

func TestRemoteCommandsReportServerErrors(t *testing.T) {
	srv, _ := adminServer(t, http.StatusUnauthorized, `{"error":"unauthorized","error_description":"Operator credentials are missing or invalid."}`)

	_, err := run(t, "key", "info", "--server", srv.URL, "--admin-token", "wrong")
	assert.ErrorContains(t, err, "401 (unauthorized)")

	bad, _ := adminServer(t, http.StatusBadRequest, `{"error":"validation_error","error_description":"x","message":"key too short"}`)
	_, err = run(t, "key", "rotate", "--server", bad.URL, "--admin-token", "s3cret", "--new-key", "short")
	assert.ErrorContains(t, err, "key too short")
}

func TestRemoteCommandsRequireServerAndToken(t *testing.T) {
	_, err := run(t, "key", "info")
	assert.ErrorContains(t, err, "--server is required")

	_, err = run(t, "key", "info", "--server", "http://127.0.0.1:1")
	assert.ErrorContains(t, err, "--admin-token is required")
}
