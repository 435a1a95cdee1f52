package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/authcore/internal/domain/models"
)

// EventRecord is the audit_events row.
type EventRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Type       string    `gorm:"size:64;index"`
	Subject    string    `gorm:"size:150;index"`
	Detail     string    `gorm:"size:255"`
	Metadata   string    `gorm:"type:text"`
	Signature  string    `gorm:"size:64"`
	OccurredAt time.Time `gorm:"index"`
}

// TableName pins the table name used by gorm.
func (EventRecord) TableName() string { return "audit_events" }

// GormAuditService provides a GORM-backed implementation of the AuditService.
// It stores audit events in a relational database.
type GormAuditService struct {
	db     *gorm.DB
	secret string
}

// NewGormAuditService creates and configures a new GormAuditService. A non-empty
// secret signs each row.
func NewGormAuditService(db *gorm.DB, secret string) *GormAuditService {
	return &GormAuditService{
		db:     db,
		secret: secret,
	}
}

// LogEvent saves an AuditEvent to the database.
func (s *GormAuditService) LogEvent(ctx context.Context, event models.AuditEvent) error {
	record := EventRecord{
		ID:         event.ID,
		Type:       string(event.Type),
		Subject:    event.Subject,
		Detail:     event.Detail,
		OccurredAt: event.OccurredAt,
	}
	if len(event.Metadata) > 0 {
		meta, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		record.Metadata = string(meta)
	}
	if s.secret != "" {
		sig, err := SignAuditEvent(event, s.secret)
		if err != nil {
			return fmt.Errorf("sign audit event: %w", err)
		}
		record.Signature = sig
	}
	return s.db.WithContext(ctx).Create(&record).Error
}
