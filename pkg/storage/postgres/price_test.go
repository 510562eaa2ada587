package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stockgen/internal/pricing"
	"stockgen/pkg/storage/postgres"

	"github.com/shopspring/decimal"
)

// go test -v --run TestPriceStoreCRUD
func TestPriceStoreCRUD(t *testing.T) {
	store := postgres.NewPriceStore(testClient(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)

	// Create
	created, err := store.Upsert(ctx, &pricing.PriceRecord{
		Symbol:    "AAPL",
		Price:     decimal.RequireFromString("150.75"),
		Timestamp: now,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected an assigned ID")
	}

	// Read
	got, err := store.FindBySymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.Symbol != "AAPL" || !got.Price.Equal(decimal.RequireFromString("150.75")) {
		t.Errorf("unexpected values: %+v", got)
	}
	if got.Timestamp.Before(now) {
		t.Errorf("timestamp went backwards: %v < %v", got.Timestamp, now)
	}

	// Update
	later := now.Add(time.Second)
	updated, err := store.Upsert(ctx, &pricing.PriceRecord{
		ID:        got.ID,
		Symbol:    "AAPL",
		Price:     decimal.RequireFromString("151.00"),
		Timestamp: later,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("ID changed from %d to %d", created.ID, updated.ID)
	}

	// Insert without ID for an existing symbol keeps the row
	again, err := store.Upsert(ctx, &pricing.PriceRecord{
		Symbol:    "AAPL",
		Price:     decimal.RequireFromString("152.00"),
		Timestamp: later,
	})
	if err != nil {
		t.Fatalf("conflicting insert failed: %v", err)
	}
	if again.ID != created.ID {
		t.Errorf("conflicting insert returned ID %d, want %d", again.ID, created.ID)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}

	// Delete
	if err := store.DeleteBySymbol(ctx, "AAPL"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.FindBySymbol(ctx, "AAPL"); !errors.Is(err, pricing.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteBySymbol(ctx, "AAPL"); !errors.Is(err, pricing.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

// go test -v --run TestPriceStoreListOrdered
func TestPriceStoreListOrdered(t *testing.T) {
	store := postgres.NewPriceStore(testClient(t))
	ctx := context.Background()

	for _, sym := range []string{"TSLA", "AAPL", "MSFT"} {
		_, err := store.Upsert(ctx, &pricing.PriceRecord{
			Symbol:    sym,
			Price:     decimal.NewFromInt(100),
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("insert %s: %v", sym, err)
		}
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"AAPL", "MSFT", "TSLA"}
	for i, rec := range all {
		if rec.Symbol != want[i] {
			t.Errorf("position %d: got %s, want %s", i, rec.Symbol, want[i])
		}
	}

	if err := store.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if all, _ = store.ListAll(ctx); len(all) != 0 {
		t.Errorf("expected empty table after clear, got %d", len(all))
	}
}

// go test -v --run TestPriceStoreSubMicrosecondTimestamp
func TestPriceStoreSubMicrosecondTimestamp(t *testing.T) {
	store := postgres.NewPriceStore(testClient(t))
	ctx := context.Background()

	in := time.Date(2025, 2, 17, 10, 0, 0, 123456789, time.UTC)
	saved, err := store.Upsert(ctx, &pricing.PriceRecord{Symbol: "NVDA", Price: decimal.NewFromInt(500), Timestamp: in})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.FindBySymbol(ctx, "NVDA")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.Timestamp.Before(in) {
		t.Errorf("stored %s is earlier than input %s", got.Timestamp.Format(time.RFC3339Nano), in.Format(time.RFC3339Nano))
	}
	if !got.Timestamp.Equal(saved.Timestamp) {
		t.Errorf("Upsert returned %s but the row holds %s", saved.Timestamp.Format(time.RFC3339Nano), got.Timestamp.Format(time.RFC3339Nano))
	}
}
