package configversion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage/memory"
)

var (
	jan = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func newManager() *Manager {
	fixed := time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC)
	return NewManager(memory.NewConfigVersionStore()).WithClock(func() time.Time { return fixed })
}

func TestLoadActive_NoVersion(t *testing.T) {
	_, _, err := newManager().LoadActive(context.Background(), jan)
	if !errors.Is(err, ErrNoActiveConfig) {
		t.Fatalf("expected ErrNoActiveConfig, got %v", err)
	}
}

func TestPublish_RoundTripExact(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	p := domain.DefaultParameters()
	p.Decision.AllocationLowRisk = 0.85
	p.Risk.MediumThreshold = 37.5
	p.MeanReversion.BBOversold = -0.55
	p.Validation.TrainFraction = 2.0 / 3.0

	written, err := m.Publish(ctx, p, feb, "tuner", "monthly")
	require.NoError(t, err)

	loaded, warnings, err := m.LoadActive(ctx, feb.AddDate(0, 0, 10))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, written.ID, loaded.ID)
	assert.Equal(t, p, loaded.Params)

	for _, tn := range domain.Tunables() {
		if got, want := tn.Get(&loaded.Params), tn.Get(&p); got != want {
			t.Errorf("%s: got %v, want %v", tn.Name, got, want)
		}
	}
}

func TestPublish_SingleOpenVersion(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	_, err := m.Publish(ctx, domain.DefaultParameters(), jan, "seed", "")
	require.NoError(t, err)
	_, err = m.Publish(ctx, domain.DefaultParameters(), feb, "tuner", "")
	require.NoError(t, err)
	_, err = m.Publish(ctx, domain.DefaultParameters(), mar, "tuner", "")
	require.NoError(t, err)

	history, err := m.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)

	open := 0
	for i, v := range history {
		if v.IsOpen() {
			open++
			continue
		}
		assert.Equal(t, history[i+1].StartDate.AddDate(0, 0, -1), *v.EndDate)
	}
	assert.Equal(t, 1, open)

	for d := jan; d.Before(mar.AddDate(0, 1, 0)); d = d.AddDate(0, 0, 1) {
		active := 0
		for _, v := range history {
			if v.ActiveAt(d) {
				active++
			}
		}
		if active != 1 {
			t.Fatalf("%s covered by %d versions", d.Format("2006-01-02"), active)
		}
	}

	v, _, err := m.LoadActive(ctx, feb.AddDate(0, 0, 28))
	require.NoError(t, err)
	assert.Equal(t, history[1].ID, v.ID)
}

func TestPublish_RejectsInvalid(t *testing.T) {
	p := domain.DefaultParameters()
	p.Tuning.Bounds["risk.high_threshold"] = domain.Bound{Min: p.Tuning.Bounds["risk.high_threshold"].Min, Step: 2.5}

	_, err := newManager().Publish(context.Background(), p, jan, "seed", "")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *domain.Parameters)
		wantErr bool
		warns   int
	}{
		{"defaults", func(p *domain.Parameters) {}, false, 0},
		{"missing bound", func(p *domain.Parameters) { delete(p.Tuning.Bounds, "decision.sell_percentage") }, true, 0},
		{"min above max", func(p *domain.Parameters) {
			lo, hi := 0.9, 0.3
			p.Tuning.Bounds["decision.sell_percentage"] = domain.Bound{Min: &lo, Max: &hi, Step: 0.05}
		}, true, 0},
		{"zero step", func(p *domain.Parameters) {
			b := p.Tuning.Bounds["decision.sell_percentage"]
			b.Step = 0
			p.Tuning.Bounds["decision.sell_percentage"] = b
		}, true, 0},
		{"value outside bound", func(p *domain.Parameters) { p.Decision.SellPercentage = 0.95 }, true, 0},
		{"unknown bound", func(p *domain.Parameters) {
			lo, hi := 0.0, 1.0
			p.Tuning.Bounds["nope"] = domain.Bound{Min: &lo, Max: &hi, Step: 0.1}
		}, true, 0},
		{"empty universe", func(p *domain.Parameters) { p.Universe.Assets = nil }, true, 0},
		{"inverted band warns", func(p *domain.Parameters) { p.Allocation.TopMin = 0.6 }, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.DefaultParameters()
			tt.mutate(&p)
			warnings, err := Validate(p)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			require.NoError(t, err)
			assert.Len(t, warnings, tt.warns)
		})
	}
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	v, created, err := m.Bootstrap(ctx, domain.DefaultParameters(), jan, "seed")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "bootstrap", v.Notes)

	again, created, err := m.Bootstrap(ctx, domain.DefaultParameters(), feb, "seed")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, v.ID, again.ID)
}

func TestNextStart(t *testing.T) {
	assert.Equal(t, feb, NextStart(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, jan.AddDate(1, 0, 0), NextStart(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
}
