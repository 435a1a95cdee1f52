package models

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/turtacn/authcore/pkg/constants"
)

// KeyMaterial is one symmetric signing secret in URL-safe base64 text form.
// It is immutable once created; String never returns the full value.
// KeyMaterial 是一个 URL 安全 base64 文本形式的对称签名密钥，创建后不可变。
type KeyMaterial struct {
	value     string
	createdAt time.Time
}

// NewKeyMaterial wraps an already validated value.
// NewKeyMaterial 包装一个已经过验证的值。
func NewKeyMaterial(value string, createdAt time.Time) KeyMaterial {
	return KeyMaterial{value: value, createdAt: createdAt.UTC()}
}

// GenerateKeyMaterial produces lengthBytes of CSPRNG output, base64url-encoded without padding.
// A non-positive length falls back to the default of 32 bytes.
// GenerateKeyMaterial 生成 lengthBytes 字节的密码学安全随机数，并以无填充的 base64url 编码。
//
// Parameters:
//   - lengthBytes: The number of random bytes to draw.
//
// Returns:
//   - KeyMaterial: The freshly generated key.
func GenerateKeyMaterial(lengthBytes int) KeyMaterial {
	if lengthBytes <= 0 {
		lengthBytes = constants.DefaultKeyLengthBytes
	}
	buf := make([]byte, lengthBytes)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf)
	return NewKeyMaterial(base64.RawURLEncoding.EncodeToString(buf), time.Now())
}

// ValidateKeyMaterial reports whether candidate is usable as a signing key: non-empty,
// at least minLength characters, and decodable as base64url once padding is normalized.
// A non-positive minLength falls back to the default of 32.
// ValidateKeyMaterial 检查候选值是否可作为签名密钥使用。
//
// Parameters:
//   - candidate: The textual key value.
//   - minLength: The minimum accepted length in characters.
//
// Returns:
//   - bool: True if the candidate passes every rule.
func ValidateKeyMaterial(candidate string, minLength int) bool {
	if minLength <= 0 {
		minLength = constants.DefaultMinKeyLength
	}
	if candidate == "" || len(candidate) < minLength {
		return false
	}
	normalized := strings.TrimRight(candidate, "=")
	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}
	_, err := base64.URLEncoding.DecodeString(normalized)
	return err == nil
}

// Value returns the full key text. Callers must never log it.
func (k KeyMaterial) Value() string { return k.value }

// CreatedAt returns when the material was generated or loaded.
func (k KeyMaterial) CreatedAt() time.Time { return k.createdAt }

// Len returns the length of the key text in characters.
func (k KeyMaterial) Len() int { return len(k.value) }

// IsZero reports whether the material is empty.
func (k KeyMaterial) IsZero() bool { return k.value == "" }

// SigningKey returns the bytes fed to the HMAC.
func (k KeyMaterial) SigningKey() []byte { return []byte(k.value) }

// Equal compares key values only; creation time is ignored.
func (k KeyMaterial) Equal(other KeyMaterial) bool { return k.value == other.value }

// Preview returns the first characters of the key followed by an ellipsis.
func (k KeyMaterial) Preview() string {
	if len(k.value) <= constants.KeyPreviewLength {
		return k.value[:len(k.value)/2] + "..."
	}
	return k.value[:constants.KeyPreviewLength] + "..."
}

// String implements fmt.Stringer with the preview so accidental logging is safe.
func (k KeyMaterial) String() string { return k.Preview() }

// RotationResult is returned once by a rotation. NewKey is the only full key value
// the administrative surface ever exposes.
// RotationResult 由轮换操作返回，NewKey 是管理接口唯一暴露的完整密钥。
type RotationResult struct {
	NewKey              KeyMaterial
	PreviousKey         KeyMaterial
	RotatedAt           time.Time
	RetainedOldKeyCount int
}

// KeyInfo is the operator-safe view of the key state.
// KeyInfo 是面向运维人员的安全密钥状态视图。
type KeyInfo struct {
	CurrentKeyLength  int        `json:"current_key_length"`
	CurrentKeyPreview string     `json:"current_key_preview"`
	OldKeysCount      int        `json:"old_keys_count"`
	LastRotatedAt     *time.Time `json:"last_rotated_at"`
}
