package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcilerOptions configures a Reconciler.
type ReconcilerOptions struct {
	// RejectStale refuses observations older than the stored timestamp.
	// By default they overwrite the stored record unconditionally.
	RejectStale bool
}

// Reconciler turns a raw (symbol, price) observation into the authoritative
// stored record, creating it on first sight and updating it in place afterward.
// Deletes go through it too so they cannot land inside a find-then-upsert.
type Reconciler struct {
	store  Store
	opts   ReconcilerOptions
	locks  *keyLock
	logger *zap.Logger

	// held shared by per-symbol work, exclusively by ClearAll
	clearMu sync.RWMutex
}

func NewReconciler(store Store, opts ReconcilerOptions, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:  store,
		opts:   opts,
		locks:  newKeyLock(),
		logger: logger,
	}
}

// Reconcile performs exactly one find and one upsert against the store and
// returns the record as stored. Store failures come back as *StoreError and
// invalid input as *ValidationError. There are no retries.
func (r *Reconciler) Reconcile(ctx context.Context, symbol string, price decimal.Decimal, observedAt time.Time) (*PriceRecord, error) {
	candidate := &PriceRecord{
		Symbol:    NormalizeSymbol(symbol),
		Price:     price,
		Timestamp: observedAt,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	// find-then-upsert is a critical section per symbol
	unlock := r.lock(candidate.Symbol)
	defer unlock()

	existing, err := r.store.FindBySymbol(ctx, candidate.Symbol)
	switch {
	case errors.Is(err, ErrNotFound):
		existing = nil
	case err != nil:
		return nil, &StoreError{Op: "find", Symbol: candidate.Symbol, Err: err}
	}

	next := candidate
	if existing != nil {
		if r.opts.RejectStale && observedAt.Before(existing.Timestamp) {
			return nil, &ValidationError{
				Field: "timestamp",
				Reason: fmt.Sprintf("%s is before stored %s",
					observedAt.Format(time.RFC3339Nano), existing.Timestamp.Format(time.RFC3339Nano)),
				Err: ErrStaleObservation,
			}
		}
		next = &PriceRecord{
			ID:        existing.ID,
			Symbol:    existing.Symbol,
			Price:     price,
			Timestamp: observedAt,
		}
	}

	saved, err := r.store.Upsert(ctx, next)
	if err != nil {
		return nil, &StoreError{Op: "upsert", Symbol: candidate.Symbol, Err: err}
	}

	r.logger.Debug("reconciled price",
		zap.String("symbol", saved.Symbol),
		zap.Uint("id", saved.ID),
		zap.Bool("created", existing == nil),
		zap.String("price", saved.Price.String()),
	)
	return saved, nil
}

// DeleteBySymbol removes symbol's record inside the same critical section as
// Reconcile. The store error is returned unwrapped.
func (r *Reconciler) DeleteBySymbol(ctx context.Context, symbol string) error {
	unlock := r.lock(symbol)
	defer unlock()
	return r.store.DeleteBySymbol(ctx, symbol)
}

// ClearAll waits for in-flight reconciles to finish and blocks new ones
// until the store is empty.
func (r *Reconciler) ClearAll(ctx context.Context) error {
	r.clearMu.Lock()
	defer r.clearMu.Unlock()
	return r.store.ClearAll(ctx)
}

func (r *Reconciler) lock(symbol string) func() {
	r.clearMu.RLock()
	unlock := r.locks.Lock(symbol)
	return func() {
		unlock()
		r.clearMu.RUnlock()
	}
}
