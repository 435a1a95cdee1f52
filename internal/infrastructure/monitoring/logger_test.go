package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/logger"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestZapLogger_MasksSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLoggerWithWriter(&config.LogConfig{Level: "debug"}, &buf)

	log.WithComponent("KeyLoader").Info(context.Background(), "loaded",
		logger.String("signing_key", "abcdefghijklmnopqrstuvwxyz"),
		logger.String("key_preview", "abcdefghij..."))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, "KeyLoader", entry["component"])
	assert.Equal(t, "abcd***wxyz", entry["signing_key"])
	assert.Equal(t, "abcdefghij...", entry["key_preview"])
	assert.Contains(t, entry, "timestamp")
}

func TestZapLogger_TraceAndRequestIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLoggerWithWriter(&config.LogConfig{Level: "info"}, &buf)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	ctx = context.WithValue(ctx, constants.ContextKeyRequestID, "req-1")

	log.Warn(ctx, "degraded")

	entry := decodeLine(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestZapLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewZapLoggerWithWriter(&config.LogConfig{Level: "warn"}, &buf)

	log.Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len())
	assert.Equal(t, constants.LogLevelWarn, log.GetLevel())

	assert.Equal(t, constants.LogLevelInfo, NewZapLoggerWithWriter(&config.LogConfig{Level: "bogus"}, &buf).GetLevel())
}
