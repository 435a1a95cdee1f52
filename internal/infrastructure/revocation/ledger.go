// Package revocation records revoked tokens in the shared cache with an in-process fallback.
package revocation

import (
	"context"
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/crypto"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/logger"
	"github.com/turtacn/authcore/pkg/utils"
)

// ClaimsReader extracts signature-trusted claims from a token regardless of its expiry.
type ClaimsReader interface {
	VerifyIgnoringExpiry(ctx context.Context, token string) *crypto.VerifiedClaims
}

// Ledger answers whether a token was revoked. It writes to the primary store and falls back
// to the in-process store when the primary fails; reads consult both. Connectivity errors
// never leave the ledger.
type Ledger struct {
	primary    service.RevocationStore
	fallback   *MemoryStore
	claims     ClaimsReader
	defaultTTL time.Duration
	metrics    service.Metrics
	log        logger.Logger
	now        func() time.Time
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithDefaultTTL sets the lifetime used when a token's expiry cannot be read.
func WithDefaultTTL(ttl time.Duration) LedgerOption {
	return func(l *Ledger) {
		if ttl > 0 {
			l.defaultTTL = ttl
		}
	}
}

// NewLedger composes primary and fallback. primary may be nil, in which case the ledger
// runs on the in-process store alone.
func NewLedger(primary service.RevocationStore, fallback *MemoryStore, claims ClaimsReader, metrics service.Metrics, log logger.Logger, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		primary:    primary,
		fallback:   fallback,
		claims:     claims,
		defaultTTL: constants.AccessTokenDefaultTTL,
		metrics:    metrics,
		log:        log.WithComponent("RevocationLedger"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback == nil {
		l.fallback = NewMemoryStore()
	}
	if l.primary == nil {
		l.log.Warn(context.Background(), "no shared revocation cache configured, revocations are local to this process")
	}
	return l
}

// Revoke records token as revoked until its natural expiry. An empty token is a no-op.
func (l *Ledger) Revoke(ctx context.Context, token string) *models.RevocationEntry {
	if token == "" {
		return nil
	}

	now := l.now()
	key, exp, fromHash := l.deriveKey(ctx, token)
	ttl := l.defaultTTL
	if !exp.IsZero() {
		ttl = exp.Sub(now)
		if ttl < constants.RevocationMinTTL {
			ttl = constants.RevocationMinTTL
		}
	}
	entry := models.NewRevocationEntry(key, ttl, fromHash, now)

	if l.primary != nil {
		err := l.primary.Add(ctx, key, ttl)
		if err == nil {
			l.metrics.RecordRevocation(fromHash, false)
			return entry
		}
		l.log.Warn(ctx, "shared revocation cache unavailable, recording revocation in process", logger.Error(err))
		l.metrics.RecordRevocationFallback("add")
	}

	_ = l.fallback.Add(ctx, key, ttl)
	entry.Degraded = true
	l.metrics.RecordRevocation(fromHash, true)
	return entry
}

// IsRevoked checks the primary store, then the in-process store unconditionally.
func (l *Ledger) IsRevoked(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	key, _, _ := l.deriveKey(ctx, token)

	if l.primary != nil {
		revoked, err := l.primary.Contains(ctx, key)
		switch {
		case err != nil:
			l.log.Warn(ctx, "shared revocation cache unavailable, checking in-process store only", logger.Error(err))
			l.metrics.RecordRevocationFallback("contains")
		case revoked:
			return true
		}
	}

	revoked, _ := l.fallback.Contains(ctx, key)
	return revoked
}

// deriveKey returns the jti of a signature-verified token or, failing that, a hash of the
// raw token. An unverified jti is never trusted, so a forged token cannot revoke another.
func (l *Ledger) deriveKey(ctx context.Context, token string) (key string, exp time.Time, fromHash bool) {
	if l.claims != nil {
		if vc := l.claims.VerifyIgnoringExpiry(ctx, token); vc != nil && vc.Claims != nil {
			exp = vc.Claims.ExpiresAt
			if vc.Claims.JTI != "" {
				return vc.Claims.JTI, exp, false
			}
		}
	}
	return constants.HashedTokenKeyPrefix + utils.HashToken(token), exp, true
}
