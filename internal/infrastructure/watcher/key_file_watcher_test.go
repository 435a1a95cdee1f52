package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/logger"
)

type fakeRotator struct {
	mu      sync.Mutex
	current models.KeyMaterial
	rotated []string
}

func (r *fakeRotator) Rotate(_ context.Context, newKey string) (*models.RotationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.current
	r.current = models.NewKeyMaterial(newKey, time.Now())
	r.rotated = append(r.rotated, newKey)
	return &models.RotationResult{NewKey: r.current, PreviousKey: prev, RotatedAt: time.Now(), RetainedOldKeyCount: 1}, nil
}

func (r *fakeRotator) CurrentKey() models.KeyMaterial {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *fakeRotator) rotations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rotated...)
}

func setup(t *testing.T) (string, *fakeRotator, *KeyFileWatcher) {
	t.Helper()
	initial := models.GenerateKeyMaterial(32)
	path := filepath.Join(t.TempDir(), "signing.key")
	require.NoError(t, os.WriteFile(path, []byte(initial.Value()+"\n"), 0o600))
	rotator := &fakeRotator{current: initial}
	w := NewKeyFileWatcher(path, rotator, 32, logger.NewNoopLogger())
	w.debounce = 10 * time.Millisecond
	return path, rotator, w
}

func TestKeyFileWatcher_Reload(t *testing.T) {
	path, rotator, w := setup(t)

	assert.False(t, w.Reload(context.Background()), "unchanged content must not rotate")

	require.NoError(t, os.WriteFile(path, []byte("too-short"), 0o600))
	assert.False(t, w.Reload(context.Background()))

	next := models.GenerateKeyMaterial(32).Value()
	require.NoError(t, os.WriteFile(path, []byte(next), 0o600))
	assert.True(t, w.Reload(context.Background()))
	assert.Equal(t, []string{next}, rotator.rotations())

	require.NoError(t, os.Remove(path))
	assert.False(t, w.Reload(context.Background()))
}

func TestKeyFileWatcher_RunRotatesOnChange(t *testing.T) {
	path, rotator, w := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("not a valid key"), 0o600))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rotator.rotations())

	next := models.GenerateKeyMaterial(32).Value()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(next), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		r := rotator.rotations()
		return len(r) == 1 && r[0] == next
	}, 2*time.Second, 10*time.Millisecond)
}

func TestKeyFileWatcher_RunFailsForMissingDirectory(t *testing.T) {
	w := NewKeyFileWatcher(filepath.Join(t.TempDir(), "missing", "signing.key"), &fakeRotator{}, 0, logger.NewNoopLogger())
	assert.Error(t, w.Run(context.Background()))
}
