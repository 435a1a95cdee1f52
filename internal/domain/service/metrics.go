package service

import (
	"time"

	"github.com/turtacn/authcore/pkg/constants"
)

// Metrics defines the interface for collecting credential lifecycle metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集凭证生命周期指标的接口。
type Metrics interface {
	// RecordAuthentication records the outcome of one Authenticate call.
	// RecordAuthentication 记录一次认证调用的结果。
	RecordAuthentication(outcome constants.AuthOutcome, duration time.Duration)

	// RecordRetiredKeyVerification records a token accepted by a retired key.
	// RecordRetiredKeyVerification 记录被退役密钥接受的令牌。
	RecordRetiredKeyVerification(index int)

	// RecordKeyRotation records a completed rotation.
	// RecordKeyRotation 记录一次完成的密钥轮换。
	RecordKeyRotation(generated bool)

	// RecordKeysPurged records retired keys removed by cleanup.
	// RecordKeysPurged 记录清理移除的退役密钥数。
	RecordKeysPurged(count int)

	// RecordRevocation records a revoked token.
	// RecordRevocation 记录一次令牌撤销。
	RecordRevocation(fromHash, degraded bool)

	// RecordRevocationFallback records a primary store failure absorbed by the fallback.
	// RecordRevocationFallback 记录被回退存储吸收的主存储故障。
	RecordRevocationFallback(operation string)

	// RecordCacheAccess records a cache hit or miss.
	// RecordCacheAccess 记录缓存命中或未命中。
	RecordCacheAccess(cacheType string, hit bool)

	// RecordDegradedLookup records a user resolved through the simplified path.
	// RecordDegradedLookup 记录通过精简路径解析的用户。
	RecordDegradedLookup(success bool)

	// RecordTokenIssue records a token minted by the issuer.
	// RecordTokenIssue 记录签发的令牌。
	RecordTokenIssue(success bool)
}
