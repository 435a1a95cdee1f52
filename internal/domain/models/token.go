// Package models defines the domain models for the authcore service.
// This file contains the revocation record kept for logged-out tokens.
package models

import (
	"time"
)

// RevocationEntry records that one token must no longer be accepted.
// RevocationEntry 记录某个令牌不应再被接受。
type RevocationEntry struct {
	// Key is the token's jti or, when no trusted jti is available, "h:" plus the SHA-256 of the raw token.
	// Key 是令牌的 jti；若无可信 jti，则为 "h:" 加原始令牌的 SHA-256。
	Key string `json:"key"`

	// ExpiresAt is when the entry may be forgotten.
	// ExpiresAt 是记录可被遗忘的时间。
	ExpiresAt time.Time `json:"expires_at"`

	// TTL is the lifetime written to the backing store.
	// TTL 是写入后端存储的生存时间。
	TTL time.Duration `json:"ttl"`

	// DerivedFromHash is true when the key is a content hash rather than a jti.
	// DerivedFromHash 表示键来自内容哈希而非 jti。
	DerivedFromHash bool `json:"derived_from_hash"`

	// Degraded is true when the entry only reached the in-process fallback store.
	// Degraded 表示该记录仅写入了进程内回退存储。
	Degraded bool `json:"degraded"`
}

// NewRevocationEntry builds an entry that expires ttl after now.
//
// Parameters:
//   - key: The ledger key.
//   - ttl: The time-to-live.
//   - fromHash: Whether the key is a content hash.
//   - now: The reference time.
//
// Returns:
//   - *RevocationEntry: The new entry.
func NewRevocationEntry(key string, ttl time.Duration, fromHash bool, now time.Time) *RevocationEntry {
	return &RevocationEntry{
		Key:             key,
		TTL:             ttl,
		ExpiresAt:       now.Add(ttl).UTC(),
		DerivedFromHash: fromHash,
	}
}

// IsExpired checks whether the entry has outlived its TTL.
// IsExpired 检查记录是否已超过其 TTL。
func (e *RevocationEntry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TimeUntilExpiry returns the remaining lifetime, or 0 once expired.
// TimeUntilExpiry 返回剩余生命周期，过期后返回 0。
func (e *RevocationEntry) TimeUntilExpiry(now time.Time) time.Duration {
	if e.IsExpired(now) {
		return 0
	}
	return e.ExpiresAt.Sub(now)
}
