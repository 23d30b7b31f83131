// Package configversion owns the timeline of parameter versions. It is the
// only writer of config_versions and the only place the active version is
// resolved.
package configversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

var (
	// ErrNoActiveConfig is returned when no version covers the requested date.
	ErrNoActiveConfig = errors.New("no active configuration version")

	// ErrInvalidConfig is returned when a version fails load-time validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Manager resolves and publishes configuration versions.
type Manager struct {
	store storage.ConfigVersionStore
	clock func() time.Time
}

// NewManager creates a manager over store.
func NewManager(store storage.ConfigVersionStore) *Manager {
	return &Manager{store: store, clock: time.Now}
}

// WithClock replaces the clock used for CreatedAt.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// LoadActive returns the version covering asOf plus non-fatal warnings.
// No version ⇒ ErrNoActiveConfig; a version failing Validate ⇒ ErrInvalidConfig.
func (m *Manager) LoadActive(ctx context.Context, asOf time.Time) (*domain.ConfigVersion, []string, error) {
	v, err := m.store.Active(ctx, domain.Day(asOf))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w for %s", ErrNoActiveConfig, domain.Day(asOf).Format("2006-01-02"))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load active config: %w", err)
	}

	warnings, err := Validate(v.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("version %s: %w", v.ID, err)
	}
	return v, warnings, nil
}

// Publish validates params and makes them the open version from start,
// closing the previous open version at start - 1 day in the same write.
func (m *Manager) Publish(ctx context.Context, params domain.Parameters, start time.Time, createdBy, notes string) (*domain.ConfigVersion, error) {
	if _, err := Validate(params); err != nil {
		return nil, err
	}
	v := &domain.ConfigVersion{
		ID:        uuid.NewString(),
		StartDate: domain.Day(start),
		CreatedBy: createdBy,
		Notes:     notes,
		CreatedAt: m.clock().UTC(),
		Params:    params.Clone(),
	}
	if err := m.store.Publish(ctx, v); err != nil {
		return nil, fmt.Errorf("publish config version: %w", err)
	}
	return v, nil
}

// Bootstrap seeds the first version when the store has none. It reports
// whether a version was written.
func (m *Manager) Bootstrap(ctx context.Context, params domain.Parameters, start time.Time, createdBy string) (*domain.ConfigVersion, bool, error) {
	existing, err := m.store.List(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list config versions: %w", err)
	}
	if len(existing) > 0 {
		return existing[len(existing)-1], false, nil
	}
	v, err := m.Publish(ctx, params, start, createdBy, "bootstrap")
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// History returns every version ordered by start date.
func (m *Manager) History(ctx context.Context) ([]*domain.ConfigVersion, error) {
	return m.store.List(ctx)
}

// NextStart returns the first day of the month after runDate.
func NextStart(runDate time.Time) time.Time {
	return domain.MonthStart(runDate).AddDate(0, 1, 0)
}
