// Package constants defines system-wide constants for the authcore service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Signing Key Constants
// ================================================================================

const (
	// DefaultKeyLengthBytes is the number of random bytes drawn for a generated signing key
	DefaultKeyLengthBytes = 32

	// DefaultMinKeyLength is the minimum accepted length, in characters, of an encoded signing key
	DefaultMinKeyLength = 32

	// DefaultMaxRetiredKeys bounds how many rotated-out keys remain valid for verification
	DefaultMaxRetiredKeys = 3

	// DefaultGracePeriodDays is how long retired keys survive after the last rotation
	DefaultGracePeriodDays = 30

	// UseDefaultGraceDays asks key cleanup to apply the configured grace period
	UseDefaultGraceDays = -1

	// KeyPreviewLength is how many leading characters of a key may be shown to operators
	KeyPreviewLength = 10
)

// ================================================================================
// JWT Algorithm Constants
// ================================================================================

// JWTAlgorithm represents the signing algorithm for JWT tokens
type JWTAlgorithm string

const (
	// AlgorithmHS256 represents HMAC with SHA-256 (default)
	AlgorithmHS256 JWTAlgorithm = "HS256"

	// AlgorithmHS384 represents HMAC with SHA-384
	AlgorithmHS384 JWTAlgorithm = "HS384"

	// AlgorithmHS512 represents HMAC with SHA-512
	AlgorithmHS512 JWTAlgorithm = "HS512"
)

// DefaultJWTAlgorithm is the default algorithm used for token signing
const DefaultJWTAlgorithm = AlgorithmHS256

// ================================================================================
// Token Lifetime Constants
// ================================================================================

const (
	// AccessTokenDefaultTTL is the default lifetime for access tokens
	AccessTokenDefaultTTL = 24 * time.Hour

	// RevocationMinTTL is the floor applied to revocation entries so that a token
	// revoked moments before expiry is still rejected across clock skew
	RevocationMinTTL = 60 * time.Second

	// DefaultCacheTimeout bounds a single call to the shared revocation cache
	DefaultCacheTimeout = 200 * time.Millisecond
)

// ================================================================================
// Cache Key Constants
// ================================================================================

const (
	// RevocationKeyPrefix namespaces revocation entries in the shared cache
	RevocationKeyPrefix = "authcore:revoked:"

	// HashedTokenKeyPrefix marks ledger keys derived from a token hash rather than a jti
	HashedTokenKeyPrefix = "h:"
)

// ================================================================================
// Audit Event Constants
// ================================================================================

// AuditEventType identifies a credential lifecycle event
type AuditEventType string

const (
	// AuditEventKeyRotated is emitted after a successful rotation
	AuditEventKeyRotated AuditEventType = "key.rotated"

	// AuditEventKeysPurged is emitted when retired keys are cleared
	AuditEventKeysPurged AuditEventType = "key.retired_purged"

	// AuditEventKeyGenerated is emitted when a debug-mode key is synthesized at startup
	AuditEventKeyGenerated AuditEventType = "key.generated"

	// AuditEventTokenRevoked is emitted when a token is revoked
	AuditEventTokenRevoked AuditEventType = "token.revoked"

	// AuditEventTokenIssued is emitted when an operator mints a token
	AuditEventTokenIssued AuditEventType = "token.issued"
)

// ================================================================================
// Authentication Outcome Constants
// ================================================================================

// AuthOutcome labels the terminal state of an authentication attempt
type AuthOutcome string

const (
	AuthOutcomeSuccess        AuthOutcome = "success"
	AuthOutcomeMissingToken   AuthOutcome = "missing_token"
	AuthOutcomeRevoked        AuthOutcome = "revoked"
	AuthOutcomeInvalidToken   AuthOutcome = "invalid_token"
	AuthOutcomeInvalidSubject AuthOutcome = "invalid_subject"
	AuthOutcomeUnknownUser    AuthOutcome = "unknown_user"
	AuthOutcomeInactiveUser   AuthOutcome = "inactive_user"
	AuthOutcomeLookupFailed   AuthOutcome = "lookup_failed"
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	// LogLevelDebug is the most verbose logging level
	LogLevelDebug LogLevel = "debug"

	// LogLevelInfo is the standard informational logging level
	LogLevelInfo LogLevel = "info"

	// LogLevelWarn indicates potential issues
	LogLevelWarn LogLevel = "warn"

	// LogLevelError indicates errors that need attention
	LogLevelError LogLevel = "error"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyPrincipal is the key under which the authenticated principal is stored
	ContextKeyPrincipal ContextKey = "principal"

	// ContextKeyRawToken is the key under which the presented bearer token is stored
	ContextKeyRawToken ContextKey = "raw_token"
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	// HeaderAuthorization carries the bearer token
	HeaderAuthorization = "Authorization"

	// HeaderAdminToken carries the operator credential for administrative routes
	HeaderAdminToken = "X-Admin-Token"

	// HeaderRequestID carries the request correlation id
	HeaderRequestID = "X-Request-ID"

	// HeaderReauthenticate tells clients their token was verified with a retired key
	HeaderReauthenticate = "X-Reauthenticate"
)

// ServiceName is used for tracing and metrics namespaces
const ServiceName = "authcore"
