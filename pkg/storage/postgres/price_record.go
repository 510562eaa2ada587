package postgres

import (
	"time"

	"stockgen/internal/pricing"

	"github.com/shopspring/decimal"
)

// PriceRecord is the latest observed price of one symbol.
type PriceRecord struct {
	ID uint `gorm:"primaryKey"`

	// one row per symbol, the upsert conflict target
	Symbol string `gorm:"type:varchar(16);not null;uniqueIndex:idx_stock_prices_symbol"`

	Price     decimal.Decimal `gorm:"type:numeric;not null"`
	Timestamp time.Time       `gorm:"not null;index:idx_stock_prices_timestamp"`

	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (PriceRecord) TableName() string {
	return "stock_prices"
}

func fromDomain(rec *pricing.PriceRecord) *PriceRecord {
	return &PriceRecord{
		ID:        rec.ID,
		Symbol:    rec.Symbol,
		Price:     rec.Price,
		Timestamp: columnTime(rec.Timestamp),
	}
}

// columnTime rounds t up to the microsecond precision of a timestamptz
// column so a stored value never reads back earlier than the one written.
func columnTime(t time.Time) time.Time {
	t = t.UTC()
	if tr := t.Truncate(time.Microsecond); !tr.Equal(t) {
		return tr.Add(time.Microsecond)
	}
	return t
}

func (r *PriceRecord) toDomain() *pricing.PriceRecord {
	return &pricing.PriceRecord{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Price:     r.Price,
		Timestamp: r.Timestamp.UTC(),
	}
}
