package pricing

import "context"

// Store persists one PriceRecord per symbol. Implementations must be safe for
// concurrent use.
type Store interface {
	// FindBySymbol returns ErrNotFound when the symbol has no record.
	FindBySymbol(ctx context.Context, symbol string) (*PriceRecord, error)
	// Upsert inserts a record with ID 0 (assigning one) or overwrites the
	// record with the given ID, returning the stored version.
	Upsert(ctx context.Context, rec *PriceRecord) (*PriceRecord, error)
	// DeleteBySymbol returns ErrNotFound when the symbol has no record.
	DeleteBySymbol(ctx context.Context, symbol string) error
	// ListAll returns every record ordered by symbol.
	ListAll(ctx context.Context) ([]PriceRecord, error)
	ClearAll(ctx context.Context) error
}

// Publisher emits a payload to a named channel. Delivery is at-least-once.
type Publisher interface {
	Publish(ctx context.Context, channel, key string, payload []byte) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, channel, key string, payload []byte) error

func (f PublisherFunc) Publish(ctx context.Context, channel, key string, payload []byte) error {
	return f(ctx, channel, key, payload)
}
