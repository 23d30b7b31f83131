package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

func TestSignalStore_InsertDuplicateDate(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := &domain.DailySignal{ID: "s1", TradeDate: day(2024, 5, 6), Action: domain.ActionHold}
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	dup := &domain.DailySignal{ID: "s2", TradeDate: day(2024, 5, 6), Action: domain.ActionBuy}
	if err := store.Insert(ctx, dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestSignalStore_Replace(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	missing := &domain.DailySignal{ID: "s1", TradeDate: day(2024, 5, 6)}
	if err := store.Replace(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Insert(ctx, &domain.DailySignal{ID: "s1", TradeDate: day(2024, 5, 6), Action: domain.ActionHold}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Replace(ctx, &domain.DailySignal{ID: "s1", TradeDate: day(2024, 5, 6), Action: domain.ActionBuy}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	got, err := store.GetByDate(ctx, day(2024, 5, 6))
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if got.Action != domain.ActionBuy {
		t.Errorf("Action = %s, want BUY", got.Action)
	}
}

func TestSignalStore_ReturnsCopies(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	sig := &domain.DailySignal{
		ID:          "s1",
		TradeDate:   day(2024, 5, 6),
		Allocations: map[string]decimal.Decimal{"SPY": decimal.NewFromInt(500)},
	}
	if err := store.Insert(ctx, sig); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	sig.Allocations["SPY"] = decimal.NewFromInt(1)

	got, _ := store.GetByDate(ctx, day(2024, 5, 6))
	if !got.Allocations["SPY"].Equal(decimal.NewFromInt(500)) {
		t.Errorf("stored signal aliased caller map: %s", got.Allocations["SPY"])
	}
}

func TestSignalStore_LatestAndRange(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	for i, d := range []int{6, 7, 9} {
		sig := &domain.DailySignal{ID: string(rune('a' + i)), TradeDate: day(2024, 5, d)}
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	latest, err := store.Latest(ctx, day(2024, 5, 9))
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if !latest.TradeDate.Equal(day(2024, 5, 7)) {
		t.Errorf("Latest = %s, want 2024-05-07", latest.TradeDate)
	}

	if _, err := store.Latest(ctx, day(2024, 5, 6)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound before first signal, got %v", err)
	}

	rng, _ := store.GetRange(ctx, day(2024, 5, 7), day(2024, 5, 31))
	if len(rng) != 2 {
		t.Errorf("GetRange returned %d signals, want 2", len(rng))
	}
}
