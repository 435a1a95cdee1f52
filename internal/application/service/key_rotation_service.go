// Package service provides application-level services that orchestrate the key store,
// the revocation ledger and the business-supplied collaborators.
package service

import (
	"context"
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	domainService "github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/crypto"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// KeyRotationConfig holds the policy applied to operator-initiated rotations.
type KeyRotationConfig struct {
	MinLength     int
	GenerateBytes int
	GraceDays     int
}

// KeyRotationService rotates the signing key and purges retired keys after the grace period.
// KeyRotationService 负责轮换签名密钥，并在宽限期后清理退役密钥。
type KeyRotationService struct {
	store   *crypto.KeyStore
	cfg     KeyRotationConfig
	audit   domainService.AuditService
	metrics domainService.Metrics
	logger  logger.Logger
	now     func() time.Time
}

// KeyRotationOption configures a KeyRotationService.
type KeyRotationOption func(*KeyRotationService)

// WithClock overrides the time source used for rotation timestamps and grace checks.
func WithClock(now func() time.Time) KeyRotationOption {
	return func(s *KeyRotationService) { s.now = now }
}

// NewKeyRotationService creates a new instance of the KeyRotationService. audit may be nil.
func NewKeyRotationService(
	store *crypto.KeyStore,
	cfg KeyRotationConfig,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	log logger.Logger,
	opts ...KeyRotationOption,
) *KeyRotationService {
	if cfg.MinLength <= 0 {
		cfg.MinLength = constants.DefaultMinKeyLength
	}
	if cfg.GenerateBytes <= 0 {
		cfg.GenerateBytes = constants.DefaultKeyLengthBytes
	}
	if cfg.GraceDays <= 0 {
		cfg.GraceDays = constants.DefaultGracePeriodDays
	}
	s := &KeyRotationService{
		store:   store,
		cfg:     cfg,
		audit:   audit,
		metrics: metrics,
		logger:  log.WithComponent("KeyRotationService"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rotate installs newKey as the current signing key and moves the previous one to the front
// of the retired list. An empty newKey generates a fresh key. An invalid newKey fails with
// errors.ErrValidation and leaves the store untouched.
func (s *KeyRotationService) Rotate(ctx context.Context, newKey string) (*models.RotationResult, error) {
	now := s.now()
	generated := newKey == ""

	if generated {
		newKey = models.GenerateKeyMaterial(s.cfg.GenerateBytes).Value()
	}
	// Generated keys are checked too; generate_bytes may be too small for min_length.
	if !models.ValidateKeyMaterial(newKey, s.cfg.MinLength) {
		s.logger.Warn(ctx, "Rejected rotation with invalid signing key",
			logger.Int("min_length", s.cfg.MinLength), logger.Bool("generated", generated))
		return nil, errors.ErrValidation.WithMessage("new signing key must be base64url and at least %d characters", s.cfg.MinLength)
	}
	next := models.NewKeyMaterial(newKey, now)

	var previous models.KeyMaterial
	snap, err := s.store.Update(func(cur crypto.KeySnapshot) (crypto.KeySnapshot, error) {
		previous = cur.Current
		cur.Retired = append([]models.KeyMaterial{cur.Current}, cur.Retired...)
		cur.Current = next
		cur.LastRotatedAt = &now
		return cur, nil
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to publish rotated key", err)
		return nil, err
	}

	result := &models.RotationResult{
		NewKey:              snap.Current,
		PreviousKey:         previous,
		RotatedAt:           now,
		RetainedOldKeyCount: len(snap.Retired),
	}

	s.metrics.RecordKeyRotation(generated)
	s.emit(ctx, models.NewAuditEvent(constants.AuditEventKeyRotated, "", "signing key rotated").
		WithMetadata("new_key_preview", result.NewKey.Preview()).
		WithMetadata("previous_key_preview", previous.Preview()).
		WithMetadata("generated", generated).
		WithMetadata("retained_old_keys", result.RetainedOldKeyCount))
	s.logger.Info(ctx, "Signing key rotated",
		logger.String("new_key_preview", result.NewKey.Preview()),
		logger.Bool("generated", generated),
		logger.Int("old_keys_count", result.RetainedOldKeyCount),
	)
	return result, nil
}

// CleanupExpired clears every retired key once graceDays have elapsed since the last rotation
// and returns how many were removed. A negative graceDays (constants.UseDefaultGraceDays) uses
// the configured default; zero purges immediately. Nothing is removed when the store was never rotated.
func (s *KeyRotationService) CleanupExpired(ctx context.Context, graceDays int) int {
	if graceDays < 0 {
		graceDays = s.cfg.GraceDays
	}
	now := s.now()
	grace := time.Duration(graceDays) * 24 * time.Hour

	removed := 0
	_, err := s.store.Update(func(cur crypto.KeySnapshot) (crypto.KeySnapshot, error) {
		if cur.LastRotatedAt == nil || now.Before(cur.LastRotatedAt.Add(grace)) {
			return cur, nil
		}
		removed = len(cur.Retired)
		cur.Retired = nil
		return cur, nil
	})
	if err != nil {
		s.logger.Error(ctx, "Failed to publish key cleanup", err)
		return 0
	}
	if removed == 0 {
		s.logger.Debug(ctx, "No retired keys eligible for cleanup", logger.Int("grace_days", graceDays))
		return 0
	}

	s.metrics.RecordKeysPurged(removed)
	s.emit(ctx, models.NewAuditEvent(constants.AuditEventKeysPurged, "", "retired signing keys purged").
		WithMetadata("removed", removed).
		WithMetadata("grace_days", graceDays))
	s.logger.Info(ctx, "Retired signing keys purged", logger.Int("removed", removed), logger.Int("grace_days", graceDays))
	return removed
}

// KeyInfo returns the operator-safe view of the key state.
func (s *KeyRotationService) KeyInfo() models.KeyInfo {
	snap := s.store.Snapshot()
	info := models.KeyInfo{
		CurrentKeyLength:  snap.Current.Len(),
		CurrentKeyPreview: snap.Current.Preview(),
		OldKeysCount:      len(snap.Retired),
	}
	if snap.LastRotatedAt != nil {
		t := *snap.LastRotatedAt
		info.LastRotatedAt = &t
	}
	return info
}

// CurrentKey returns the active signing key. Used by the key file watcher to skip no-op rotations.
func (s *KeyRotationService) CurrentKey() models.KeyMaterial {
	return s.store.Current()
}

func (s *KeyRotationService) emit(ctx context.Context, event *models.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, *event); err != nil {
		s.logger.Warn(ctx, "Failed to emit audit event", logger.String("event_type", string(event.Type)), logger.Error(err))
	}
}
