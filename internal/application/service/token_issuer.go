package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/authcore/internal/domain/models"
	domainService "github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/crypto"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// TokenIssuer mints tokens signed with the current key.
type TokenIssuer struct {
	store   *crypto.KeyStore
	codec   *crypto.TokenCodec
	issuer  string
	ttl     time.Duration
	audit   domainService.AuditService
	metrics domainService.Metrics
	logger  logger.Logger
	now     func() time.Time
}

// NewTokenIssuer creates a new instance of the TokenIssuer. A non-positive ttl uses the
// default access token lifetime; audit may be nil.
func NewTokenIssuer(
	store *crypto.KeyStore,
	codec *crypto.TokenCodec,
	issuer string,
	ttl time.Duration,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	log logger.Logger,
) *TokenIssuer {
	if ttl <= 0 {
		ttl = constants.AccessTokenDefaultTTL
	}
	return &TokenIssuer{
		store:   store,
		codec:   codec,
		issuer:  issuer,
		ttl:     ttl,
		audit:   audit,
		metrics: metrics,
		logger:  log.WithComponent("TokenIssuer"),
		now:     time.Now,
	}
}

// Issue signs a token for subject carrying extra claims. Registered claim names in extra are ignored.
func (i *TokenIssuer) Issue(ctx context.Context, subject string, extra map[string]interface{}) (string, *models.Claims, error) {
	if subject == "" {
		i.metrics.RecordTokenIssue(false)
		return "", nil, errors.ErrInvalidRequest.WithMessage("subject is required")
	}

	now := i.now().Truncate(time.Second)
	claims := &models.Claims{
		Subject:   subject,
		Issuer:    i.issuer,
		JTI:       uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
		Extra:     extra,
	}

	token, err := i.codec.Encode(claims, i.store.Current())
	if err != nil {
		i.metrics.RecordTokenIssue(false)
		i.logger.Error(ctx, "Failed to sign token", err, logger.String("subject", subject))
		return "", nil, errors.ErrInternal.WithError(err)
	}
	i.metrics.RecordTokenIssue(true)

	if i.audit != nil {
		event := models.NewAuditEvent(constants.AuditEventTokenIssued, subject, "token issued").
			WithMetadata("jti", claims.JTI).
			WithMetadata("expires_at", claims.ExpiresAt.UTC().Format(time.RFC3339))
		if err := i.audit.LogEvent(ctx, *event); err != nil {
			i.logger.Warn(ctx, "Failed to emit audit event", logger.String("event_type", string(event.Type)), logger.Error(err))
		}
	}
	i.logger.Info(ctx, "Token issued", logger.String("subject", subject), logger.String("jti", claims.JTI))
	return token, claims, nil
}
