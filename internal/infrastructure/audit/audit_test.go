package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service/mocks"
	"github.com/turtacn/authcore/internal/infrastructure/monitoring"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func revokedEvent() models.AuditEvent {
	return *models.NewAuditEvent(constants.AuditEventTokenRevoked, "42", "token revoked").
		WithMetadata("revocation_key", "jti-1").
		WithMetadata("expires_at", "2030-01-01T00:00:00Z")
}

func TestKafkaProducer_LogEvent(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, "audit-secret", logger.NewNoopLogger())
	event := revokedEvent()

	require.NoError(t, p.LogEvent(context.Background(), event))
	require.Len(t, w.messages, 1)
	msg := w.messages[0]

	assert.Equal(t, event.ID, string(msg.Key))
	assert.Equal(t, "token.revoked", header(msg, EventTypeHeader))
	assert.True(t, VerifyPayload(msg.Value, header(msg, SignatureHeader), "audit-secret"))
	assert.False(t, VerifyPayload(msg.Value, header(msg, SignatureHeader), "other-secret"))

	var decoded models.AuditEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "jti-1", decoded.Metadata["revocation_key"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaProducer_UnsignedAndFailure(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, "", logger.NewNoopLogger())
	require.NoError(t, p.LogEvent(context.Background(), revokedEvent()))
	assert.Empty(t, header(w.messages[0], SignatureHeader))

	require.NoError(t, p.LogEvent(context.Background(), revokedEvent()))
	assert.NotEqual(t, string(w.messages[0].Key), string(w.messages[1].Key), "events of one type spread across partitions")

	w.err = errors.New("broker unavailable")
	assert.ErrorContains(t, p.LogEvent(context.Background(), revokedEvent()), "broker unavailable")
}

func TestNewKafkaProducer_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaProducer(config.KafkaConfig{AuditTopic: "audit"}, logger.NewNoopLogger())
	assert.Error(t, err)

	p, err := NewKafkaProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, AuditTopic: "audit"}, logger.NewNoopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestVerifyPayload_RejectsGarbage(t *testing.T) {
	assert.False(t, VerifyPayload([]byte("x"), "%%%not-base64", "secret"))
	assert.True(t, VerifyPayload([]byte("x"), SignPayload([]byte("x"), "secret"), "secret"))
}

func TestGormAuditService_LogEvent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&EventRecord{}))

	svc := NewGormAuditService(db, "secret")
	event := revokedEvent()
	require.NoError(t, svc.LogEvent(context.Background(), event))

	var stored EventRecord
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, "token.revoked", stored.Type)
	assert.Equal(t, "42", stored.Subject)
	assert.JSONEq(t, `{"revocation_key":"jti-1","expires_at":"2030-01-01T00:00:00Z"}`, stored.Metadata)

	expected, err := SignAuditEvent(event, "secret")
	require.NoError(t, err)
	assert.Equal(t, expected, stored.Signature)
}

func TestLogAuditService_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	log := monitoring.NewZapLoggerWithWriter(&config.LogConfig{Level: "info", Format: "json"}, &buf)
	svc := NewLogAuditService(log)

	require.NoError(t, svc.LogEvent(context.Background(), revokedEvent()))
	out := buf.String()
	assert.Contains(t, out, `"event_type":"token.revoked"`)
	assert.Contains(t, out, `"meta_revocation_key":"jti-1"`)
	assert.Contains(t, out, "token revoked")
}

func TestFanoutAuditService(t *testing.T) {
	ok := new(mocks.MockAuditService)
	ok.On("LogEvent", mock.Anything, mock.Anything).Return(nil)
	failing := new(mocks.MockAuditService)
	failing.On("LogEvent", mock.Anything, mock.Anything).Return(errors.New("sink down"))

	fanout := NewFanoutAuditService(failing, nil, ok)
	err := fanout.LogEvent(context.Background(), revokedEvent())

	assert.EqualError(t, err, "sink down")
	ok.AssertNumberOfCalls(t, "LogEvent", 1)
	failing.AssertNumberOfCalls(t, "LogEvent", 1)
}
