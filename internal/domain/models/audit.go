package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/authcore/pkg/constants"
)

// AuditEvent is a key or token lifecycle event.
type AuditEvent struct {
	ID         string                   `json:"id"`
	Type       constants.AuditEventType `json:"type"`
	Subject    string                   `json:"subject,omitempty"`
	Detail     string                   `json:"detail,omitempty"`
	Metadata   map[string]interface{}   `json:"metadata,omitempty"`
	OccurredAt time.Time                `json:"occurred_at"`
}

// NewAuditEvent creates a new audit event stamped with the current time.
func NewAuditEvent(eventType constants.AuditEventType, subject, detail string) *AuditEvent {
	return &AuditEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		Detail:     detail,
		OccurredAt: time.Now().UTC(),
	}
}

// WithMetadata attaches a metadata entry to the event.
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}
