// Package messaging holds publisher combinators shared by the transports.
package messaging

import (
	"context"

	"stockgen/internal/pricing"

	"go.uber.org/zap"
)

// Tee publishes to a primary publisher and then to best-effort mirrors.
// Only the primary's error is returned; mirror errors are logged.
type Tee struct {
	primary pricing.Publisher
	mirrors []pricing.Publisher
	logger  *zap.Logger
}

func NewTee(logger *zap.Logger, primary pricing.Publisher, mirrors ...pricing.Publisher) *Tee {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tee{primary: primary, mirrors: mirrors, logger: logger}
}

// Publish skips the mirrors when the primary fails, so consumers of the mirror
// never see a price the stream did not accept.
func (t *Tee) Publish(ctx context.Context, channel, key string, payload []byte) error {
	if err := t.primary.Publish(ctx, channel, key, payload); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Publish(ctx, channel, key, payload); err != nil {
			t.logger.Warn("mirror publish failed", zap.String("channel", channel), zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// LogPublisher writes messages to the log instead of a broker, for local runs.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, channel, key string, payload []byte) error {
	p.logger.Info("message", zap.String("channel", channel), zap.String("key", key), zap.ByteString("payload", payload))
	return nil
}
