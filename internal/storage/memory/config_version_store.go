package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

// ConfigVersionStore is an in-memory implementation of storage.ConfigVersionStore.
type ConfigVersionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ConfigVersion // keyed by id
}

// NewConfigVersionStore creates a new in-memory config version store.
func NewConfigVersionStore() *ConfigVersionStore {
	return &ConfigVersionStore{
		data: make(map[string]*domain.ConfigVersion),
	}
}

func cloneVersion(v *domain.ConfigVersion) *domain.ConfigVersion {
	c := *v
	if v.EndDate != nil {
		end := *v.EndDate
		c.EndDate = &end
	}
	c.Params = v.Params.Clone()
	return &c
}

// openLocked returns the open version. Caller holds mu.
func (s *ConfigVersionStore) openLocked() *domain.ConfigVersion {
	for _, v := range s.data {
		if v.IsOpen() {
			return v
		}
	}
	return nil
}

// Insert adds a version. Returns ErrDuplicateKey on id collision or a second open version.
func (s *ConfigVersionStore) Insert(_ context.Context, v *domain.ConfigVersion) error {
	if v == nil || v.ID == "" || v.StartDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if v.IsOpen() && s.openLocked() != nil {
		return storage.ErrDuplicateKey
	}

	s.data[v.ID] = cloneVersion(v)
	return nil
}

// Publish closes the open version and inserts v under a single lock.
func (s *ConfigVersionStore) Publish(_ context.Context, v *domain.ConfigVersion) error {
	if v == nil || v.ID == "" || v.StartDate.IsZero() || !v.IsOpen() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[v.ID]; exists {
		return storage.ErrDuplicateKey
	}

	start := domain.Day(v.StartDate)
	if open := s.openLocked(); open != nil {
		if !start.After(domain.Day(open.StartDate)) {
			return storage.ErrInvalidInput
		}
		end := start.AddDate(0, 0, -1)
		open.EndDate = &end
	}

	s.data[v.ID] = cloneVersion(v)
	return nil
}

// Active retrieves the version covering asOf. Returns ErrNotFound if none.
func (s *ConfigVersionStore) Active(_ context.Context, asOf time.Time) (*domain.ConfigVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.ConfigVersion
	for _, v := range s.data {
		if !v.ActiveAt(asOf) {
			continue
		}
		if found == nil || v.StartDate.After(found.StartDate) {
			found = v
		}
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	return cloneVersion(found), nil
}

// GetByID retrieves a version by its ID. Returns ErrNotFound if not exists.
func (s *ConfigVersionStore) GetByID(_ context.Context, id string) (*domain.ConfigVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneVersion(v), nil
}

// List retrieves all versions ordered by start date ASC.
func (s *ConfigVersionStore) List(_ context.Context) ([]*domain.ConfigVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ConfigVersion, 0, len(s.data))
	for _, v := range s.data {
		result = append(result, cloneVersion(v))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartDate.Before(result[j].StartDate)
	})

	return result, nil
}

var _ storage.ConfigVersionStore = (*ConfigVersionStore)(nil)
