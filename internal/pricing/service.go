package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service is the facade used by outer layers such as the HTTP API.
type Service struct {
	store       Store
	reconciler  *Reconciler
	coordinator *PublishCoordinator
	logger      *zap.Logger
}

func NewService(store Store, reconciler *Reconciler, coordinator *PublishCoordinator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		reconciler:  reconciler,
		coordinator: coordinator,
		logger:      logger,
	}
}

// ListAll returns every stored record.
func (s *Service) ListAll(ctx context.Context) ([]PriceRecord, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return records, nil
}

// GetBySymbol returns the record for symbol. A missing record is a *StoreError
// wrapping ErrNotFound.
func (s *Service) GetBySymbol(ctx context.Context, symbol string) (*PriceRecord, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	rec, err := s.store.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, &StoreError{Op: "find", Symbol: symbol, Err: err}
	}
	return rec, nil
}

// Reconcile upserts a caller-supplied observation without publishing it.
func (s *Service) Reconcile(ctx context.Context, symbol string, price decimal.Decimal, observedAt time.Time) (*PriceRecord, error) {
	return s.reconciler.Reconcile(ctx, symbol, price, observedAt)
}

// PublishExisting publishes a caller-supplied record as-is, skipping
// reconciliation.
func (s *Service) PublishExisting(ctx context.Context, rec PriceRecord) error {
	rec.Symbol = NormalizeSymbol(rec.Symbol)
	if err := rec.Validate(); err != nil {
		return err
	}
	out := s.coordinator.PublishOne(ctx, &rec)
	if out.Err != nil {
		return out.Err
	}
	s.logger.Info("published supplied price", zap.String("symbol", rec.Symbol), zap.String("price", rec.Price.String()))
	return nil
}

// DeleteBySymbol removes the record for symbol or fails with a *StoreError
// wrapping ErrNotFound.
func (s *Service) DeleteBySymbol(ctx context.Context, symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if err := s.reconciler.DeleteBySymbol(ctx, symbol); err != nil {
		return &StoreError{Op: "delete", Symbol: symbol, Err: err}
	}
	s.logger.Info("deleted price record", zap.String("symbol", symbol))
	return nil
}

// ClearAll removes every record.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.reconciler.ClearAll(ctx); err != nil {
		return &StoreError{Op: "clear", Err: err}
	}
	s.logger.Info("cleared all price records")
	return nil
}
