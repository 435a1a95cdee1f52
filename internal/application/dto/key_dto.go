package dto

import (
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
)

// RotateKeyRequest 密钥轮换请求 DTO
// An empty NewKey asks the server to generate one.
type RotateKeyRequest struct {
	NewKey string `json:"new_key,omitempty"`
}

// RotateKeyResponse 密钥轮换响应 DTO
// This is the only response that carries a full key value.
type RotateKeyResponse struct {
	NewKey              string    `json:"new_key"`
	NewKeyPreview       string    `json:"new_key_preview"`
	PreviousKeyPreview  string    `json:"previous_key_preview"`
	RotatedAt           time.Time `json:"rotated_at"`
	RetainedOldKeyCount int       `json:"retained_old_key_count"`
}

// NewRotateKeyResponse maps a rotation result.
func NewRotateKeyResponse(r *models.RotationResult) *RotateKeyResponse {
	return &RotateKeyResponse{
		NewKey:              r.NewKey.Value(),
		NewKeyPreview:       r.NewKey.Preview(),
		PreviousKeyPreview:  r.PreviousKey.Preview(),
		RotatedAt:           r.RotatedAt.UTC(),
		RetainedOldKeyCount: r.RetainedOldKeyCount,
	}
}

// CleanupRequest 退役密钥清理请求 DTO
// An absent GraceDays uses the configured grace period; zero purges immediately.
type CleanupRequest struct {
	GraceDays *int `json:"grace_days,omitempty"`
}

// CleanupResponse 退役密钥清理响应 DTO
type CleanupResponse struct {
	Removed int `json:"removed"`
}
