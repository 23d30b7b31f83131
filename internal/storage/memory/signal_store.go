package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailySignal // keyed by trade date
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.DailySignal),
	}
}

func dateKey(d time.Time) string {
	return domain.Day(d).Format("2006-01-02")
}

// cloneSignal copies a signal including its maps.
func cloneSignal(s *domain.DailySignal) *domain.DailySignal {
	c := *s
	c.TradeDate = domain.Day(s.TradeDate)
	if s.Allocations != nil {
		c.Allocations = make(map[string]decimal.Decimal, len(s.Allocations))
		for k, v := range s.Allocations {
			c.Allocations[k] = v
		}
	}
	if s.AssetScores != nil {
		c.AssetScores = make(map[string]float64, len(s.AssetScores))
		for k, v := range s.AssetScores {
			c.AssetScores[k] = v
		}
	}
	if s.Features != nil {
		c.Features = make(map[string]domain.FeatureSnapshot, len(s.Features))
		for k, v := range s.Features {
			c.Features[k] = v
		}
	}
	c.Ineligible = append([]string(nil), s.Ineligible...)
	return &c
}

// Insert adds a new signal. Returns ErrDuplicateKey if the trade date exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.DailySignal) error {
	if sig == nil || sig.ID == "" || sig.TradeDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(sig.TradeDate)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = cloneSignal(sig)
	return nil
}

// Replace swaps the signal for its trade date. Returns ErrNotFound if none exists.
func (s *SignalStore) Replace(_ context.Context, sig *domain.DailySignal) error {
	if sig == nil || sig.ID == "" || sig.TradeDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(sig.TradeDate)
	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}

	s.data[key] = cloneSignal(sig)
	return nil
}

// GetByDate retrieves the signal for a trade date. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByDate(_ context.Context, date time.Time) (*domain.DailySignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[dateKey(date)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneSignal(sig), nil
}

// GetRange retrieves signals within [from, to] (inclusive), ordered by trade date ASC.
func (s *SignalStore) GetRange(_ context.Context, from, to time.Time) ([]*domain.DailySignal, error) {
	from, to = domain.Day(from), domain.Day(to)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailySignal
	for _, sig := range s.data {
		if sig.TradeDate.Before(from) || sig.TradeDate.After(to) {
			continue
		}
		result = append(result, cloneSignal(sig))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TradeDate.Before(result[j].TradeDate)
	})

	return result, nil
}

// Latest retrieves the most recent signal strictly before date.
func (s *SignalStore) Latest(_ context.Context, before time.Time) (*domain.DailySignal, error) {
	before = domain.Day(before)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.DailySignal
	for _, sig := range s.data {
		if !sig.TradeDate.Before(before) {
			continue
		}
		if latest == nil || sig.TradeDate.After(latest.TradeDate) {
			latest = sig
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneSignal(latest), nil
}

var _ storage.SignalStore = (*SignalStore)(nil)
