package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is the latest known price for a stock symbol.
type PriceRecord struct {
	ID        uint            `json:"id,omitempty"` // 0 until the store assigns one
	Symbol    string          `json:"symbol"`       // natural key, e.g. "AAPL"
	Price     decimal.Decimal `json:"price"`        // always > 0
	Timestamp time.Time       `json:"timestamp"`    // when the price was observed
}

// NormalizeSymbol trims and upper-cases a symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Validate checks the record invariants that must hold before it reaches a store
// or a publisher.
func (r *PriceRecord) Validate() error {
	if r == nil {
		return &ValidationError{Field: "record", Reason: "is nil"}
	}
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if !r.Price.IsPositive() {
		return &ValidationError{Field: "price", Reason: fmt.Sprintf("must be positive, got %s", r.Price)}
	}
	return nil
}

// String is used in log lines.
func (r PriceRecord) String() string {
	return fmt.Sprintf("PriceRecord(id=%d, symbol=%s, price=%s, timestamp=%s)",
		r.ID, r.Symbol, r.Price.String(), r.Timestamp.Format(time.RFC3339Nano))
}
