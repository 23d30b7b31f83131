package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital-allocator/internal/domain"
)

var asOf = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

// series builds n daily bars ending the day before asOf.
func series(symbol string, closes []float64) []*domain.PriceBar {
	bars := make([]*domain.PriceBar, len(closes))
	start := asOf.AddDate(0, 0, -len(closes))
	for i, c := range closes {
		bars[i] = &domain.PriceBar{Symbol: symbol, Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestNewHistory_DropsBarsOnOrAfterAsOf(t *testing.T) {
	bars := series("SPY", linear(5, 100, 1))
	bars = append(bars,
		&domain.PriceBar{Symbol: "SPY", Date: asOf, Close: 999},
		&domain.PriceBar{Symbol: "SPY", Date: asOf.AddDate(0, 0, 3), Close: 999},
		&domain.PriceBar{Symbol: "QQQ", Date: asOf.AddDate(0, 0, -1), Close: 1},
	)

	h := NewHistory("SPY", bars, asOf)
	require.Equal(t, 5, h.Len())
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 104.0, last.Close)
	for _, c := range h.Closes() {
		assert.NotEqual(t, 999.0, c)
	}
}

func TestCompute_BoundaryAtMinDataDays(t *testing.T) {
	p := domain.DefaultParameters()

	short := NewHistory("SPY", series("SPY", linear(p.Universe.MinDataDays-1, 100, 0.5)), asOf)
	_, err := Compute(short, p.Features, p.Universe.MinDataDays)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	enough := NewHistory("SPY", series("SPY", linear(p.Universe.MinDataDays, 100, 0.5)), asOf)
	snap, err := Compute(enough, p.Features, p.Universe.MinDataDays)
	require.NoError(t, err)
	assert.Equal(t, "SPY", snap.Symbol)
	assert.True(t, snap.AsOf.Equal(asOf))
}

func TestCompute_Values(t *testing.T) {
	p := domain.DefaultParameters()
	closes := linear(80, 100, 1) // 100..179
	snap, err := Compute(NewHistory("SPY", series("SPY", closes), asOf), p.Features, p.Universe.MinDataDays)
	require.NoError(t, err)

	assert.Equal(t, 179.0, snap.Close)
	assert.InDelta(t, 179.0/175.0-1, snap.ReturnShort, 1e-12)
	assert.InDelta(t, 179.0/160.0-1, snap.ReturnMedium, 1e-12)
	assert.InDelta(t, 179.0/120.0-1, snap.ReturnLong, 1e-12)

	// SMA20 of 160..179 = 169.5
	assert.InDelta(t, 169.5, snap.ShortMA, 1e-12)
	assert.InDelta(t, 179.0/169.5-1, snap.PriceVsShortMA, 1e-12)
	// SMA50 of 130..179 = 154.5
	assert.InDelta(t, 154.5, snap.LongMA, 1e-12)

	// Monotonic rise: no losses.
	assert.Equal(t, 100.0, snap.RSI)
	assert.Greater(t, snap.Volatility, 0.0)
	assert.Greater(t, snap.BollingerPos, 0.0)
	assert.LessOrEqual(t, snap.BollingerPos, 1.0)
}

func TestRSI(t *testing.T) {
	t.Run("too short is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI(linear(14, 100, 1), 14))
	})
	t.Run("flat is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI(linear(30, 100, 0), 14))
	})
	t.Run("falling is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, RSI(linear(30, 100, -1), 14))
	})
	t.Run("alternating is balanced", func(t *testing.T) {
		closes := make([]float64, 15)
		for i := range closes {
			closes[i] = 100 + float64(i%2)
		}
		// 7 gains and 7 losses of 1 over 14 deltas
		assert.InDelta(t, 50.0, RSI(closes, 14), 1e-9)
	})
	t.Run("wilder smoothing", func(t *testing.T) {
		closes := []float64{10, 11, 10, 12}
		// period 2: seed gains (1,0)/2=0.5 losses (0,1)/2=0.5
		// next delta +2: gain=(0.5+2)/2=1.25 loss=(0.5+0)/2=0.25
		want := 100 - 100/(1+1.25/0.25)
		assert.InDelta(t, want, RSI(closes, 2), 1e-12)
	})
}

func TestBollinger(t *testing.T) {
	assert.Equal(t, 0.0, Bollinger(linear(10, 100, 1), 20, 2).Position)

	closes := []float64{1, 3, 1, 3}
	// mean 2, population σ 1, last close 3 → (3-2)/(2·1) = 0.5
	b := Bollinger(closes, 4, 2)
	assert.InDelta(t, 0.5, b.Position, 1e-12)
	assert.InDelta(t, 4.0, b.Upper, 1e-12)
	assert.InDelta(t, 0.0, b.Lower, 1e-12)

	spike := append(linear(19, 100, 0), 200)
	assert.True(t, math.Abs(Bollinger(spike, 20, 2).Position) <= 1)
}
