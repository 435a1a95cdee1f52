package crypto

import (
	"context"
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// VerifiedClaims are claims whose signature matched one of the store's keys.
type VerifiedClaims struct {
	Claims *models.Claims
	// RetiredKeyIndex is nil when the current key matched.
	RetiredKeyIndex *int
	// ShouldReauthenticate is set whenever a retired key matched.
	ShouldReauthenticate bool
}

// VerifiedWithRetiredKey reports whether verification fell back to a retired key.
func (v *VerifiedClaims) VerifiedWithRetiredKey() bool {
	return v.RetiredKeyIndex != nil
}

// TokenVerifier checks a token against the current key first, then each retired key in
// recency order.
type TokenVerifier struct {
	store  *KeyStore
	codec  *TokenCodec
	leeway time.Duration
	log    logger.Logger
}

// NewTokenVerifier creates a verifier over store.
func NewTokenVerifier(store *KeyStore, codec *TokenCodec, leeway time.Duration, log logger.Logger) *TokenVerifier {
	return &TokenVerifier{
		store:  store,
		codec:  codec,
		leeway: leeway,
		log:    log.WithComponent("TokenVerifier"),
	}
}

// Verify returns the verified claims, or nil when no key accepts the token.
func (v *TokenVerifier) Verify(ctx context.Context, token string) *VerifiedClaims {
	return v.verify(ctx, token, DecodeOptions{Leeway: v.leeway})
}

// VerifyIgnoringExpiry performs the same key walk but accepts expired tokens. The revocation
// ledger uses it to read a signature-trusted jti and exp.
func (v *TokenVerifier) VerifyIgnoringExpiry(ctx context.Context, token string) *VerifiedClaims {
	return v.verify(ctx, token, DecodeOptions{SkipExpiry: true})
}

func (v *TokenVerifier) verify(ctx context.Context, token string, opts DecodeOptions) *VerifiedClaims {
	if token == "" {
		return nil
	}
	snap := v.store.Snapshot()

	claims, err := v.codec.Decode(token, snap.Current, opts)
	if err == nil {
		return &VerifiedClaims{Claims: claims}
	}
	if terminal(err) {
		v.log.Debug(ctx, "token rejected by current key", logger.Error(err))
		return nil
	}

	for i, key := range snap.Retired {
		claims, err = v.codec.Decode(token, key, opts)
		if err == nil {
			idx := i
			v.log.Info(ctx, "token verified with retired key", logger.Int("retired_key_index", idx))
			return &VerifiedClaims{Claims: claims, RetiredKeyIndex: &idx, ShouldReauthenticate: true}
		}
		if terminal(err) {
			v.log.Debug(ctx, "token rejected by retired key", logger.Int("retired_key_index", i), logger.Error(err))
			return nil
		}
	}

	v.log.Debug(ctx, "token signature matched no known key", logger.Int("retired_keys", len(snap.Retired)))
	return nil
}

// terminal errors mean another key cannot change the outcome: the token cannot be parsed,
// or its signature already matched and only the claims failed.
func terminal(err error) bool {
	return errors.Is(err, errors.ErrTokenMalformed) || errors.Is(err, errors.ErrTokenExpired)
}
