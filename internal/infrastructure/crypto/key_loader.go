package crypto

import (
	"context"
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// KeyLoaderOptions holds the key policy applied at load time.
type KeyLoaderOptions struct {
	MinLength     int
	GenerateBytes int
	MaxRetired    int
}

func (o *KeyLoaderOptions) setDefaults() {
	if o.MinLength <= 0 {
		o.MinLength = constants.DefaultMinKeyLength
	}
	if o.GenerateBytes <= 0 {
		o.GenerateBytes = constants.DefaultKeyLengthBytes
	}
	if o.MaxRetired <= 0 {
		o.MaxRetired = constants.DefaultMaxRetiredKeys
	}
}

// KeyLoader builds the initial KeyStore from a ConfigSource.
type KeyLoader struct {
	source service.ConfigSource
	opts   KeyLoaderOptions
	audit  service.AuditService
	log    logger.Logger
}

// NewKeyLoader creates a loader. audit may be nil.
func NewKeyLoader(source service.ConfigSource, opts KeyLoaderOptions, audit service.AuditService, log logger.Logger) *KeyLoader {
	opts.setDefaults()
	return &KeyLoader{
		source: source,
		opts:   opts,
		audit:  audit,
		log:    log.WithComponent("KeyLoader"),
	}
}

// Load reads the configured keys and returns a populated store with no rotation timestamp.
// A missing key outside debug mode, an invalid current key, or an unreadable source
// fail with errors.ErrConfiguration.
func (l *KeyLoader) Load(ctx context.Context) (*KeyStore, error) {
	value, ok, err := l.source.CurrentKeyValue(ctx)
	if err != nil {
		return nil, errors.ErrConfiguration.WithMessage("failed to read current signing key").WithError(err)
	}

	var current models.KeyMaterial
	switch {
	case !ok || value == "":
		if !l.source.IsDebugMode() {
			return nil, errors.ErrConfiguration.WithMessage("production requires an explicit signing key")
		}
		current = models.GenerateKeyMaterial(l.opts.GenerateBytes)
		if !models.ValidateKeyMaterial(current.Value(), l.opts.MinLength) {
			return nil, errors.ErrConfiguration.WithMessage("generate_bytes %d is too small for min_length %d", l.opts.GenerateBytes, l.opts.MinLength)
		}
		l.log.Warn(ctx, "no signing key configured, generated an ephemeral key for debug mode",
			logger.String("key_preview", current.Preview()))
		l.emit(ctx, models.NewAuditEvent(constants.AuditEventKeyGenerated, "", "ephemeral debug signing key generated"))
	case !models.ValidateKeyMaterial(value, l.opts.MinLength):
		return nil, errors.ErrConfiguration.WithMessage("configured signing key is invalid: need at least %d base64url characters", l.opts.MinLength)
	default:
		current = models.NewKeyMaterial(value, time.Now())
	}

	oldValues, err := l.source.OldKeyValues(ctx)
	if err != nil {
		return nil, errors.ErrConfiguration.WithMessage("failed to read old signing keys").WithError(err)
	}

	retired := make([]models.KeyMaterial, 0, len(oldValues))
	for i, candidate := range oldValues {
		if !models.ValidateKeyMaterial(candidate, l.opts.MinLength) {
			l.log.Warn(ctx, "dropping invalid old signing key", logger.Int("position", i))
			continue
		}
		k := models.NewKeyMaterial(candidate, time.Now())
		if k.Equal(current) {
			l.log.Warn(ctx, "dropping old signing key identical to current key", logger.Int("position", i))
			continue
		}
		retired = append(retired, k)
	}
	if len(retired) > l.opts.MaxRetired {
		l.log.Warn(ctx, "too many old signing keys configured, dropping the oldest",
			logger.Int("configured", len(retired)), logger.Int("max_retired", l.opts.MaxRetired))
		retired = retired[:l.opts.MaxRetired]
	}

	store, err := NewKeyStore(current, retired, l.opts.MaxRetired)
	if err != nil {
		return nil, err
	}
	l.log.Info(ctx, "signing keys loaded",
		logger.String("current_key_preview", current.Preview()),
		logger.Int("old_keys_count", len(store.Retired())))
	return store, nil
}

func (l *KeyLoader) emit(ctx context.Context, event *models.AuditEvent) {
	if l.audit == nil {
		return
	}
	if err := l.audit.LogEvent(ctx, *event); err != nil {
		l.log.Warn(ctx, "failed to emit audit event", logger.String("event_type", string(event.Type)), logger.Error(err))
	}
}
