// Package service defines the contracts the authcore core consumes from its collaborators.
package service

import (
	"context"
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
)

//go:generate mockery --name ConfigSource --output mocks --outpkg mocks
// ConfigSource supplies the raw signing key values at process start.
// ConfigSource 在进程启动时提供原始签名密钥值。
type ConfigSource interface {
	// CurrentKeyValue returns the configured current key. ok is false when none is configured.
	// CurrentKeyValue 返回当前配置的密钥；未配置时 ok 为 false。
	CurrentKeyValue(ctx context.Context) (value string, ok bool, err error)

	// OldKeyValues returns retired keys, most recent first.
	// OldKeyValues 返回已退役的密钥，最近的在前。
	OldKeyValues(ctx context.Context) ([]string, error)

	// IsDebugMode reports whether a missing key may be synthesized.
	// IsDebugMode 表示缺失的密钥是否可以自动生成。
	IsDebugMode() bool
}

//go:generate mockery --name UserStore --output mocks --outpkg mocks
// UserStore resolves a token subject to a user record.
// Implementations return errors.ErrUserNotFound for unknown subjects; any other error
// is treated as an internal failure of the primary path.
// UserStore 将令牌主体解析为用户记录。
type UserStore interface {
	// Lookup is the primary, full lookup.
	// Lookup 是主要的完整查询。
	Lookup(ctx context.Context, subject string) (*models.UserRecord, error)

	// LookupSimplified is a narrower query used only after Lookup failed internally.
	// LookupSimplified 是仅在 Lookup 内部失败后使用的精简查询。
	LookupSimplified(ctx context.Context, subject string) (*models.UserRecord, error)
}

//go:generate mockery --name RevocationStore --output mocks --outpkg mocks
// RevocationStore is one backend of the revocation ledger.
// RevocationStore 是撤销账本的一个后端。
type RevocationStore interface {
	// Add records key for ttl.
	// Add 记录 key，有效期为 ttl。
	Add(ctx context.Context, key string, ttl time.Duration) error

	// Contains reports whether key was recorded.
	// Contains 报告 key 是否已被记录。
	Contains(ctx context.Context, key string) (bool, error)
}

//go:generate mockery --name AuditService --output mocks --outpkg mocks
// AuditService defines the interface for logging security-sensitive audit events.
// AuditService 定义了用于记录安全敏感审计事件的接口。
type AuditService interface {
	// LogEvent records an audit event.
	// LogEvent 记录审计事件。
	LogEvent(ctx context.Context, event models.AuditEvent) error
}

// SubjectResolver normalizes the sub claim into the identity form the UserStore expects.
// It returns false when the subject cannot identify a user.
type SubjectResolver func(subject string) (string, bool)
