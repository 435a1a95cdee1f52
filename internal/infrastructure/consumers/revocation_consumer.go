// Package consumers contains Kafka consumers for background processing tasks.
package consumers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/internal/infrastructure/audit"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/logger"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RevocationConsumer replays token.revoked audit events published by other instances
// into the local revocation store. This is the fan-in half of cross-region revocation.
type RevocationConsumer struct {
	reader  messageReader
	store   service.RevocationStore
	secret  string
	backoff time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// NewRevocationConsumer creates a consumer for cfg.AuditTopic in cfg.ConsumerGroup.
func NewRevocationConsumer(cfg config.KafkaConfig, store service.RevocationStore, log logger.Logger) *RevocationConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.AuditTopic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})
	return newRevocationConsumer(reader, store, cfg.SigningSecret, log)
}

func newRevocationConsumer(reader messageReader, store service.RevocationStore, secret string, log logger.Logger) *RevocationConsumer {
	return &RevocationConsumer{
		reader:  reader,
		store:   store,
		secret:  secret,
		backoff: time.Second,
		now:     time.Now,
		logger:  log.WithComponent("RevocationConsumer"),
	}
}

// Start runs the consumer loop until ctx is cancelled or the reader is closed.
func (c *RevocationConsumer) Start(ctx context.Context) error {
	c.logger.Info(ctx, "starting revocation consumer")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, io.EOF) {
				c.logger.Info(ctx, "stopping revocation consumer")
				return nil
			}
			c.logger.Error(ctx, "failed to fetch message from kafka", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		for {
			err := c.handleMessage(ctx, msg)
			if err == nil {
				break
			}
			// The offset is not committed until the event is applied.
			c.logger.Error(ctx, "failed to apply revocation event", err, logger.Int64("offset", msg.Offset))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn(ctx, "failed to commit kafka offset", logger.Error(err), logger.Int64("offset", msg.Offset))
		}
	}
}

// Stop closes the reader, which unblocks Start.
func (c *RevocationConsumer) Stop() error {
	return c.reader.Close()
}

// handleMessage returns an error only when the event should be retried.
func (c *RevocationConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	if t := headerValue(msg, audit.EventTypeHeader); t != "" && t != string(constants.AuditEventTokenRevoked) {
		return nil
	}
	if c.secret != "" && !audit.VerifyPayload(msg.Value, headerValue(msg, audit.SignatureHeader), c.secret) {
		c.logger.Warn(ctx, "dropping audit event with invalid signature", logger.Int64("offset", msg.Offset))
		return nil
	}

	var event models.AuditEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Warn(ctx, "dropping malformed audit event", logger.Error(err), logger.Int64("offset", msg.Offset))
		return nil
	}
	if event.Type != constants.AuditEventTokenRevoked {
		return nil
	}

	key, _ := event.Metadata["revocation_key"].(string)
	expiresAtStr, _ := event.Metadata["expires_at"].(string)
	if key == "" || expiresAtStr == "" {
		c.logger.Warn(ctx, "dropping revocation event without key or expiry", logger.String("audit_id", event.ID))
		return nil
	}
	expiresAt, err := time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		c.logger.Warn(ctx, "dropping revocation event with bad expiry", logger.String("audit_id", event.ID), logger.Error(err))
		return nil
	}

	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		c.logger.Debug(ctx, "skipping expired revocation event", logger.String("audit_id", event.ID))
		return nil
	}

	if err := c.store.Add(ctx, key, ttl); err != nil {
		return fmt.Errorf("record revocation %s: %w", event.ID, err)
	}
	c.logger.Debug(ctx, "applied remote revocation", logger.String("audit_id", event.ID), logger.Duration("ttl", ttl))
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
