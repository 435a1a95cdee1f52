// Package watcher propagates signing key changes written to disk into the running key store.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/infrastructure/keysource"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/logger"
)

// Rotator is the subset of the key rotation service the watcher drives.
type Rotator interface {
	Rotate(ctx context.Context, newKey string) (*models.RotationResult, error)
	CurrentKey() models.KeyMaterial
}

// KeyFileWatcher rotates to the signing key file's content whenever it changes.
// The parent directory is watched so that atomic renames and mounted-secret symlink
// swaps are observed as well as in-place writes.
type KeyFileWatcher struct {
	path      string
	rotator   Rotator
	minLength int
	debounce  time.Duration
	logger    logger.Logger
}

// NewKeyFileWatcher creates a watcher for path.
func NewKeyFileWatcher(path string, rotator Rotator, minLength int, log logger.Logger) *KeyFileWatcher {
	if minLength <= 0 {
		minLength = constants.DefaultMinKeyLength
	}
	return &KeyFileWatcher{
		path:      filepath.Clean(path),
		rotator:   rotator,
		minLength: minLength,
		debounce:  100 * time.Millisecond,
		logger:    log.WithComponent("KeyFileWatcher"),
	}
}

// Run watches until ctx is cancelled.
func (w *KeyFileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info(ctx, "Watching signing key file", logger.String("path", w.path))

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			fire = time.After(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "File watcher error", logger.Error(err))
		case <-fire:
			fire = nil
			w.Reload(ctx)
		}
	}
}

// Reload reads the key file and rotates when it holds a valid key different from the current one.
// It reports whether a rotation happened.
func (w *KeyFileWatcher) Reload(ctx context.Context) bool {
	value, err := keysource.ReadKeyFile(w.path)
	if err != nil {
		w.logger.Error(ctx, "Failed to read signing key file", err, logger.String("path", w.path))
		return false
	}
	if value == "" || value == w.rotator.CurrentKey().Value() {
		return false
	}
	if !models.ValidateKeyMaterial(value, w.minLength) {
		w.logger.Error(ctx, "Ignoring invalid signing key in file", nil,
			logger.String("path", w.path),
			logger.Int("min_length", w.minLength))
		return false
	}

	result, err := w.rotator.Rotate(ctx, value)
	if err != nil {
		w.logger.Error(ctx, "Key file rotation failed", err, logger.String("path", w.path))
		return false
	}
	w.logger.Info(ctx, "Rotated signing key from file",
		logger.String("new_key_preview", result.NewKey.Preview()),
		logger.Int("old_keys_count", result.RetainedOldKeyCount))
	return true
}
