package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

// PriceStore is an in-memory implementation of storage.PriceStore.
type PriceStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceBar // keyed by (symbol, date)
}

// NewPriceStore creates a new in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{
		data: make(map[string]*domain.PriceBar),
	}
}

func priceKey(symbol string, date time.Time) string {
	return fmt.Sprintf("%s|%s", symbol, domain.Day(date).Format("2006-01-02"))
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *PriceStore) InsertBulk(_ context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(bars))

	for _, b := range bars {
		if b == nil || b.Symbol == "" || b.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := priceKey(b.Symbol, b.Date)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, b := range bars {
		barCopy := *b
		barCopy.Date = domain.Day(b.Date)
		s.data[priceKey(b.Symbol, b.Date)] = &barCopy
	}

	return nil
}

// GetRange retrieves bars for a symbol within [from, to] (inclusive), ordered by date ASC.
func (s *PriceStore) GetRange(_ context.Context, symbol string, from, to time.Time) ([]*domain.PriceBar, error) {
	from, to = domain.Day(from), domain.Day(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for _, b := range s.data {
		if b.Symbol != symbol || b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		barCopy := *b
		result = append(result, &barCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

var _ storage.PriceStore = (*PriceStore)(nil)
