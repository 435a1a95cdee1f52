package service

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/authcore/internal/domain/models"
	domainService "github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/crypto"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

const tracerName = "github.com/turtacn/authcore/internal/application/service"

// TokenVerifier is the verification half of the token codec.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) *crypto.VerifiedClaims
}

// RevocationLedger records and answers token revocations.
type RevocationLedger interface {
	Revoke(ctx context.Context, token string) *models.RevocationEntry
	IsRevoked(ctx context.Context, token string) bool
}

// NumericSubjectResolver accepts subjects that are positive integer user ids.
func NumericSubjectResolver(subject string) (string, bool) {
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil || id == 0 {
		return "", false
	}
	return strconv.FormatUint(id, 10), true
}

// PassthroughSubjectResolver accepts any non-empty subject unchanged.
func PassthroughSubjectResolver(subject string) (string, bool) {
	return subject, subject != ""
}

// AuthenticationService is the single entry point that turns a raw bearer token into a Principal.
// Every failure is reported as errors.ErrInvalidCredentials so callers cannot tell
// revoked, expired, malformed and unknown-user tokens apart.
// AuthenticationService 是将原始令牌转换为 Principal 的唯一入口。
type AuthenticationService struct {
	verifier TokenVerifier
	ledger   RevocationLedger
	users    domainService.UserStore
	resolve  domainService.SubjectResolver
	audit    domainService.AuditService
	metrics  domainService.Metrics
	tracer   trace.Tracer
	logger   logger.Logger
}

// NewAuthenticationService creates a new instance of the AuthenticationService.
// A nil resolver accepts any non-empty subject; a nil tracer uses the global provider; audit may be nil.
func NewAuthenticationService(
	verifier TokenVerifier,
	ledger RevocationLedger,
	users domainService.UserStore,
	resolve domainService.SubjectResolver,
	audit domainService.AuditService,
	metrics domainService.Metrics,
	tracer trace.Tracer,
	log logger.Logger,
) *AuthenticationService {
	if resolve == nil {
		resolve = PassthroughSubjectResolver
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &AuthenticationService{
		verifier: verifier,
		ledger:   ledger,
		users:    users,
		resolve:  resolve,
		audit:    audit,
		metrics:  metrics,
		tracer:   tracer,
		logger:   log.WithComponent("AuthenticationService"),
	}
}

// Authenticate validates rawToken and resolves its subject to an active user.
func (s *AuthenticationService) Authenticate(ctx context.Context, rawToken string) (*models.Principal, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "authenticate")
	outcome := constants.AuthOutcomeSuccess
	defer func() {
		span.SetAttributes(attribute.String("auth.outcome", string(outcome)))
		if outcome != constants.AuthOutcomeSuccess {
			span.SetStatus(codes.Error, string(outcome))
		}
		span.End()
		s.metrics.RecordAuthentication(outcome, time.Since(start))
	}()

	fail := func(o constants.AuthOutcome) (*models.Principal, error) {
		outcome = o
		return nil, errors.ErrInvalidCredentials
	}

	if rawToken == "" {
		s.logger.Debug(ctx, "Authentication failed: no token presented")
		return fail(constants.AuthOutcomeMissingToken)
	}

	if s.isRevoked(ctx, rawToken) {
		s.logger.Info(ctx, "Authentication failed: token revoked")
		return fail(constants.AuthOutcomeRevoked)
	}

	verified := s.verify(ctx, rawToken)
	if verified == nil {
		s.logger.Debug(ctx, "Authentication failed: token did not verify")
		return fail(constants.AuthOutcomeInvalidToken)
	}
	if verified.RetiredKeyIndex != nil {
		s.metrics.RecordRetiredKeyVerification(*verified.RetiredKeyIndex)
	}

	subject, ok := s.resolve(verified.Claims.Subject)
	if !ok {
		s.logger.Debug(ctx, "Authentication failed: subject not resolvable", logger.String("subject", verified.Claims.Subject))
		return fail(constants.AuthOutcomeInvalidSubject)
	}

	user, degraded, err := s.lookup(ctx, subject)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			s.logger.Info(ctx, "Authentication failed: unknown user", logger.String("subject", subject))
			return fail(constants.AuthOutcomeUnknownUser)
		}
		s.logger.Info(ctx, "Authentication failed: user lookup unavailable", logger.String("subject", subject), logger.Error(err))
		return fail(constants.AuthOutcomeLookupFailed)
	}
	if !user.IsActive {
		s.logger.Info(ctx, "Authentication failed: user inactive", logger.String("subject", subject))
		return fail(constants.AuthOutcomeInactiveUser)
	}

	return &models.Principal{
		Subject:                subject,
		User:                   user,
		RawClaims:              verified.Claims.AsMap(),
		VerifiedWithRetiredKey: verified.VerifiedWithRetiredKey(),
		RetiredKeyIndex:        verified.RetiredKeyIndex,
		ShouldReauthenticate:   verified.ShouldReauthenticate,
		DegradedLookup:         degraded,
	}, nil
}

// Logout revokes rawToken and records a token.revoked audit event.
// It returns errors.ErrInvalidRequest when no token is given.
func (s *AuthenticationService) Logout(ctx context.Context, rawToken string) (*models.RevocationEntry, error) {
	ctx, span := s.tracer.Start(ctx, "logout")
	defer span.End()

	entry := s.ledger.Revoke(ctx, rawToken)
	if entry == nil {
		return nil, errors.ErrInvalidRequest.WithMessage("token is required")
	}
	span.SetAttributes(
		attribute.Bool("revocation.hashed", entry.DerivedFromHash),
		attribute.Bool("revocation.degraded", entry.Degraded),
	)

	if s.audit != nil {
		event := models.NewAuditEvent(constants.AuditEventTokenRevoked, "", "token revoked").
			WithMetadata("revocation_key", entry.Key).
			WithMetadata("expires_at", entry.ExpiresAt.UTC().Format(time.RFC3339)).
			WithMetadata("degraded", entry.Degraded)
		if err := s.audit.LogEvent(ctx, *event); err != nil {
			s.logger.Warn(ctx, "Failed to emit audit event", logger.String("event_type", string(event.Type)), logger.Error(err))
		}
	}
	s.logger.Info(ctx, "Token revoked", logger.Bool("hashed", entry.DerivedFromHash), logger.Bool("degraded", entry.Degraded))
	return entry, nil
}

func (s *AuthenticationService) isRevoked(ctx context.Context, rawToken string) bool {
	ctx, span := s.tracer.Start(ctx, "authenticate.revocation_check")
	defer span.End()
	revoked := s.ledger.IsRevoked(ctx, rawToken)
	span.SetAttributes(attribute.Bool("token.revoked", revoked))
	return revoked
}

func (s *AuthenticationService) verify(ctx context.Context, rawToken string) *crypto.VerifiedClaims {
	ctx, span := s.tracer.Start(ctx, "authenticate.verify")
	defer span.End()
	verified := s.verifier.Verify(ctx, rawToken)
	if verified != nil {
		span.SetAttributes(attribute.Bool("token.retired_key", verified.VerifiedWithRetiredKey()))
	}
	return verified
}

// lookup runs the primary user lookup and retries once through the simplified path
// when the primary fails for a reason other than a missing user.
func (s *AuthenticationService) lookup(ctx context.Context, subject string) (*models.UserRecord, bool, error) {
	ctx, span := s.tracer.Start(ctx, "authenticate.user_lookup")
	defer span.End()

	user, err := s.users.Lookup(ctx, subject)
	if err == nil {
		if user == nil {
			return nil, false, errors.ErrUserNotFound
		}
		return user, false, nil
	}
	if errors.Is(err, errors.ErrUserNotFound) {
		return nil, false, err
	}

	span.RecordError(err)
	span.SetAttributes(attribute.Bool("user.degraded_lookup", true))
	s.logger.Info(ctx, "Primary user lookup failed, retrying with simplified lookup", logger.Error(err))

	user, err = s.users.LookupSimplified(ctx, subject)
	if err == nil && user == nil {
		err = errors.ErrUserNotFound
	}
	s.metrics.RecordDegradedLookup(err == nil)
	if err != nil {
		span.RecordError(err)
		return nil, true, err
	}
	return user, true, nil
}
