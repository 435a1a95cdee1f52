package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
)

var _ service.Metrics = (*Metrics)(nil)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	AuthAttempts        *prometheus.CounterVec
	AuthLatency         *prometheus.HistogramVec
	RetiredKeyHits      *prometheus.CounterVec
	KeyRotations        *prometheus.CounterVec
	RetiredKeysPurged   prometheus.Counter
	TokenRevocations    *prometheus.CounterVec
	RevocationFallbacks *prometheus.CounterVec
	CacheAccess         *prometheus.CounterVec
	DegradedLookups     *prometheus.CounterVec
	TokenIssues         *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics and registers them on reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_authentication_total",
				Help: "Total number of authentication attempts by outcome.",
			},
			[]string{"outcome"},
		),
		AuthLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authcore_authentication_latency_seconds",
				Help:    "Latency of authentication calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		RetiredKeyHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_retired_key_verifications_total",
				Help: "Tokens accepted by a retired signing key.",
			},
			[]string{"index"},
		),
		KeyRotations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_key_rotations_total",
				Help: "Total number of signing key rotations.",
			},
			[]string{"source"},
		),
		RetiredKeysPurged: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "authcore_retired_keys_purged_total",
				Help: "Retired keys removed by cleanup.",
			},
		),
		TokenRevocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_token_revocations_total",
				Help: "Total number of token revocations.",
			},
			[]string{"key_type", "store"},
		),
		RevocationFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_revocation_fallback_total",
				Help: "Shared revocation cache failures absorbed by the in-process store.",
			},
			[]string{"operation"},
		),
		CacheAccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_cache_access_total",
				Help: "Cache hits and misses.",
			},
			[]string{"cache", "result"},
		),
		DegradedLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_degraded_user_lookups_total",
				Help: "User lookups served by the simplified path.",
			},
			[]string{"result"},
		),
		TokenIssues: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_token_issue_total",
				Help: "Tokens issued.",
			},
			[]string{"result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_http_requests_total",
				Help: "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authcore_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordAuthentication records the outcome of one Authenticate call.
func (m *Metrics) RecordAuthentication(outcome constants.AuthOutcome, duration time.Duration) {
	m.AuthAttempts.WithLabelValues(string(outcome)).Inc()
	m.AuthLatency.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

// RecordRetiredKeyVerification records a token accepted by a retired key.
func (m *Metrics) RecordRetiredKeyVerification(index int) {
	m.RetiredKeyHits.WithLabelValues(strconv.Itoa(index)).Inc()
}

// RecordKeyRotation records a completed rotation.
func (m *Metrics) RecordKeyRotation(generated bool) {
	m.KeyRotations.WithLabelValues(pick(generated, "generated", "supplied")).Inc()
}

// RecordKeysPurged records retired keys removed by cleanup.
func (m *Metrics) RecordKeysPurged(count int) {
	m.RetiredKeysPurged.Add(float64(count))
}

// RecordRevocation records a revoked token.
func (m *Metrics) RecordRevocation(fromHash, degraded bool) {
	m.TokenRevocations.WithLabelValues(pick(fromHash, "hash", "jti"), pick(degraded, "memory", "shared")).Inc()
}

// RecordRevocationFallback records a primary store failure absorbed by the fallback.
func (m *Metrics) RecordRevocationFallback(operation string) {
	m.RevocationFallbacks.WithLabelValues(operation).Inc()
}

// RecordCacheAccess records a cache hit or miss.
func (m *Metrics) RecordCacheAccess(cacheType string, hit bool) {
	m.CacheAccess.WithLabelValues(cacheType, pick(hit, "hit", "miss")).Inc()
}

// RecordDegradedLookup records a user resolved through the simplified path.
func (m *Metrics) RecordDegradedLookup(success bool) {
	m.DegradedLookups.WithLabelValues(pick(success, "success", "failure")).Inc()
}

// RecordTokenIssue records a token minted by the issuer.
func (m *Metrics) RecordTokenIssue(success bool) {
	m.TokenIssues.WithLabelValues(pick(success, "success", "failure")).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
