package audit

import (
	"context"

	"go.uber.org/multierr"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/logger"
)

// LogAuditService writes audit events to the structured log.
type LogAuditService struct {
	logger logger.Logger
}

// NewLogAuditService creates a logger-backed AuditService.
func NewLogAuditService(log logger.Logger) *LogAuditService {
	return &LogAuditService{logger: log.WithComponent("Audit")}
}

// LogEvent implements service.AuditService.
func (s *LogAuditService) LogEvent(ctx context.Context, event models.AuditEvent) error {
	fields := []logger.Field{
		logger.String("audit_id", event.ID),
		logger.String("event_type", string(event.Type)),
		logger.Time("occurred_at", event.OccurredAt),
	}
	if event.Subject != "" {
		fields = append(fields, logger.String("subject", event.Subject))
	}
	for k, v := range event.Metadata {
		fields = append(fields, logger.Any("meta_"+k, v))
	}
	s.logger.Info(ctx, event.Detail, fields...)
	return nil
}

// FanoutAuditService delivers each event to every sink and reports all failures together.
type FanoutAuditService struct {
	sinks []service.AuditService
}

// NewFanoutAuditService combines sinks; nil entries are skipped.
func NewFanoutAuditService(sinks ...service.AuditService) *FanoutAuditService {
	f := &FanoutAuditService{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// LogEvent implements service.AuditService.
func (f *FanoutAuditService) LogEvent(ctx context.Context, event models.AuditEvent) error {
	var err error
	for _, s := range f.sinks {
		err = multierr.Append(err, s.LogEvent(ctx, event))
	}
	return err
}
