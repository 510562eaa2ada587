// Package kafka publishes price records to Kafka topics.
package kafka

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"stockgen/internal/pricing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	HeaderEventID     = "event-id"
	HeaderContentType = "content-type"
)

var _ pricing.Publisher = (*Publisher)(nil)

// Writer is the part of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WriterConfig tunes the underlying *kafka.Writer.
type WriterConfig struct {
	Brokers      []string
	MaxAttempts  int           // default: 3
	BatchTimeout time.Duration // default: 1ms
	WriteTimeout time.Duration // default: 10s
}

// NewWriter builds a synchronous writer that waits for every in-sync replica,
// so a returned nil means the broker has the message.
func NewWriter(cfg WriterConfig) *kafka.Writer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{}, // same symbol, same partition
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxAttempts,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
}

// Publisher writes one Kafka message per Publish call, keyed by the record
// symbol, to the topic named by the channel.
type Publisher struct {
	writer Writer
	logger *zap.Logger
	newID  func() string
}

func NewPublisher(writer Writer, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		writer: writer,
		logger: logger,
		newID:  NewEventID,
	}
}

func (p *Publisher) Publish(ctx context.Context, channel, key string, payload []byte) error {
	eventID := p.newID()
	msg := kafka.Message{
		Topic: channel,
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(eventID)},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}

	p.logger.Debug("sent kafka message",
		zap.String("topic", channel),
		zap.String("key", key),
		zap.String("event_id", eventID),
	)
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NewEventID returns a random UUID in unpadded URL-safe base64 (22 chars).
func NewEventID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// DecodeEventID parses an id produced by NewEventID.
func DecodeEventID(s string) (uuid.UUID, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode event id: %w", err)
	}
	return uuid.FromBytes(b)
}
