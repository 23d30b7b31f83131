package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(trades))

	for _, t := range trades {
		if t == nil || t.ID == "" || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
		if t.Action != domain.ActionBuy && t.Action != domain.ActionSell {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.ID] = struct{}{}
	}

	for _, t := range trades {
		tradeCopy := *t
		tradeCopy.TradeDate = domain.Day(t.TradeDate)
		s.data[t.ID] = &tradeCopy
	}

	return nil
}

// GetByDateRange retrieves trades within [from, to] (inclusive), ordered by date then id.
func (s *TradeStore) GetByDateRange(_ context.Context, from, to time.Time) ([]*domain.Trade, error) {
	from, to = domain.Day(from), domain.Day(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.TradeDate.Before(from) || t.TradeDate.After(to) {
			continue
		}
		tradeCopy := *t
		result = append(result, &tradeCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].TradeDate.Equal(result[j].TradeDate) {
			return result[i].TradeDate.Before(result[j].TradeDate)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
