package postgres

import (
	"context"
	"errors"
	"fmt"

	"stockgen/internal/pricing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ pricing.Store = (*PriceStore)(nil)

// PriceStore keeps price records in the stock_prices table.
type PriceStore struct {
	client *PostgresClient
}

func NewPriceStore(client *PostgresClient) *PriceStore {
	return &PriceStore{client: client}
}

func (s *PriceStore) FindBySymbol(ctx context.Context, symbol string) (*pricing.PriceRecord, error) {
	var row PriceRecord
	err := s.client.DB.WithContext(ctx).
		Where("symbol = ?", symbol).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pricing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// Upsert updates by primary key when the record has an ID. Otherwise it
// inserts, and a concurrent insert of the same symbol turns into an update of
// that row so the returned ID is always the stored one.
func (s *PriceStore) Upsert(ctx context.Context, rec *pricing.PriceRecord) (*pricing.PriceRecord, error) {
	row := fromDomain(rec)
	db := s.client.DB.WithContext(ctx)

	if row.ID != 0 {
		if err := db.Save(row).Error; err != nil {
			return nil, fmt.Errorf("save price %s: %w", row.Symbol, err)
		}
		return row.toDomain(), nil
	}

	tx := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "timestamp", "updated_at"}),
	}).Create(row)
	if tx.Error != nil {
		return nil, fmt.Errorf("insert price %s: %w", row.Symbol, tx.Error)
	}
	return row.toDomain(), nil
}

func (s *PriceStore) DeleteBySymbol(ctx context.Context, symbol string) error {
	tx := s.client.DB.WithContext(ctx).
		Where("symbol = ?", symbol).
		Delete(&PriceRecord{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return pricing.ErrNotFound
	}
	return nil
}

func (s *PriceStore) ListAll(ctx context.Context) ([]pricing.PriceRecord, error) {
	var rows []PriceRecord
	if err := s.client.DB.WithContext(ctx).Order("symbol").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]pricing.PriceRecord, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (s *PriceStore) ClearAll(ctx context.Context) error {
	return s.client.DB.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&PriceRecord{}).Error
}

// Close closes the underlying connection pool.
func (s *PriceStore) Close() error {
	return s.client.Close()
}
