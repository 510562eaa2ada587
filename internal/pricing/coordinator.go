package pricing

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// OutcomeKind tags how processing one symbol ended.
type OutcomeKind int

const (
	Published OutcomeKind = iota
	StoreFailed
	PublishFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case Published:
		return "published"
	case StoreFailed:
		return "store_failed"
	case PublishFailed:
		return "publish_failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the result of processing a single symbol. Err is nil only when
// Kind is Published.
type Outcome struct {
	Symbol string
	Kind   OutcomeKind
	Record *PriceRecord
	Err    error
}

// OK reports whether the record was published.
func (o Outcome) OK() bool { return o.Kind == Published }

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s %s: %v", o.Symbol, o.Kind, o.Err)
	}
	return fmt.Sprintf("%s %s", o.Symbol, o.Kind)
}

// StoreFailure builds the outcome for a symbol whose reconciliation failed.
func StoreFailure(symbol string, err error) Outcome {
	return Outcome{Symbol: symbol, Kind: StoreFailed, Err: err}
}

// PublishCoordinator publishes reconciled records and turns every failure into
// an Outcome instead of an error.
type PublishCoordinator struct {
	publisher Publisher
	channel   string
	logger    *zap.Logger
}

func NewPublishCoordinator(publisher Publisher, channel string, logger *zap.Logger) *PublishCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishCoordinator{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
	}
}

// Channel returns the configured destination.
func (c *PublishCoordinator) Channel() string { return c.channel }

// PublishOne makes exactly one publish call keyed by the record's symbol.
// It never panics and never returns an error.
func (c *PublishCoordinator) PublishOne(ctx context.Context, rec *PriceRecord) (out Outcome) {
	if rec == nil {
		return Outcome{Kind: PublishFailed, Err: &ValidationError{Field: "record", Reason: "is nil"}}
	}
	out = Outcome{Symbol: rec.Symbol, Record: rec}

	if err := c.publish(ctx, rec); err != nil {
		out.Kind = PublishFailed
		out.Err = err
		return out
	}
	out.Kind = Published
	return out
}

// publish returns a *PublishError for any failure, including a panicking
// publisher.
func (c *PublishCoordinator) publish(ctx context.Context, rec *PriceRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PublishError{Channel: c.channel, Key: rec.Symbol, Err: fmt.Errorf("publisher panic: %v", p)}
		}
	}()

	payload, err := json.Marshal(rec)
	if err != nil {
		return &PublishError{Channel: c.channel, Key: rec.Symbol, Err: fmt.Errorf("marshal record: %w", err)}
	}

	if err := c.publisher.Publish(ctx, c.channel, rec.Symbol, payload); err != nil {
		return &PublishError{Channel: c.channel, Key: rec.Symbol, Err: err}
	}

	c.logger.Debug("published price",
		zap.String("channel", c.channel),
		zap.String("symbol", rec.Symbol),
		zap.Int("bytes", len(payload)),
	)
	return nil
}
