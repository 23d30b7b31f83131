package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
)

func snap(r5, r20, r60, pvs20, pvs50 float64) features.Snapshot {
	return features.Snapshot{
		ReturnShort:    r5,
		ReturnMedium:   r20,
		ReturnLong:     r60,
		PriceVsShortMA: pvs20,
		PriceVsLongMA:  pvs50,
	}
}

func TestScore_WeightedAndClamped(t *testing.T) {
	p := domain.DefaultParameters().Regime

	s := snap(0.03, 0.06, 0.09, 0.02, 0.04)
	// momentum 0.06·0.5 + 0.02·0.3 + 0.04·0.2 = 0.044
	assert.InDelta(t, 0.044, Score([]features.Snapshot{s}, p), 1e-12)

	huge := snap(10, 10, 10, 10, 10)
	assert.Equal(t, 1.0, Score([]features.Snapshot{huge}, p))

	crash := snap(-10, -10, -10, -10, -10)
	assert.Equal(t, -1.0, Score([]features.Snapshot{crash}, p))

	assert.Equal(t, 0.0, Score(nil, p))
}

func TestAdaptiveThresholds(t *testing.T) {
	p := domain.DefaultParameters().Regime

	tests := []struct {
		name       string
		vol        float64
		wantFactor float64
	}{
		{"baseline", 0.01, 1.0},
		{"double vol", 0.02, 1.4},
		{"calm", 0.005, 0.8},
		{"extreme clamps high", 0.2, 2.0},
		{"zero clamps low", -1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := AdaptiveThresholds(tt.vol, p)
			assert.InDelta(t, tt.wantFactor, th.Factor, 1e-12)
			assert.InDelta(t, 0.3*tt.wantFactor, th.Bullish, 1e-12)
			assert.InDelta(t, -0.3*tt.wantFactor, th.Bearish, 1e-12)
		})
	}
}

func TestThresholds_Label(t *testing.T) {
	th := Thresholds{Bullish: 0.3, Bearish: -0.3}
	assert.Equal(t, domain.RegimeBullish, th.Label(0.45))
	assert.Equal(t, domain.RegimeNeutral, th.Label(0.3))
	assert.Equal(t, domain.RegimeNeutral, th.Label(0.05))
	assert.Equal(t, domain.RegimeBearish, th.Label(-0.5))
}

func TestTransition(t *testing.T) {
	p := domain.DefaultParameters().Regime
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name      string
		today     float64
		yesterday *float64
		want      string
	}{
		{"no history", 0.5, nil, domain.TransitionStable},
		{"cross up", 0.15, f(-0.2), domain.TransitionTurningBullish},
		{"cross down", -0.15, f(0.2), domain.TransitionTurningBearish},
		{"fading bull", 0.35, f(0.55), domain.TransitionLosingMomentum},
		{"accelerating", 0.25, f(0.05), domain.TransitionGainingMomentum},
		{"flat", 0.2, f(0.18), domain.TransitionStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transition(tt.today, tt.yesterday, p))
		})
	}
}

func TestRisk_Components(t *testing.T) {
	p := domain.DefaultParameters().Risk

	snaps := []features.Snapshot{
		{Volatility: 0.01, RecentVolatility: 0.01, ReturnLong: 0.05},
		{Volatility: 0.01, RecentVolatility: 0.01, ReturnLong: 0.05},
	}
	b, err := Risk(snaps, 0, p)
	require.NoError(t, err)
	// vol 50, no discount, correlation 30 (identical momentum)
	assert.InDelta(t, 50, b.Volatility, 1e-9)
	assert.InDelta(t, 30, b.Correlation, 1e-9)
	assert.InDelta(t, 50*0.7+30*0.3, b.Score, 1e-9)
}

func TestRisk_StabilityDiscount(t *testing.T) {
	p := domain.DefaultParameters().Risk

	snaps := []features.Snapshot{{Volatility: 0.01, RecentVolatility: 0.005}}
	b, err := Risk(snaps, 0, p)
	require.NoError(t, err)
	// ratio 0.5 < 0.8 → stability 0.5, vol 50·(1-0.5·0.3) = 42.5
	assert.InDelta(t, 0.5, b.Stability, 1e-12)
	assert.InDelta(t, 42.5, b.Volatility, 1e-9)
}

func TestRisk_FloorAndClamp(t *testing.T) {
	p := domain.DefaultParameters().Risk

	calm := []features.Snapshot{{Volatility: 0.001, RecentVolatility: 0.001, ReturnLong: 0.5}, {Volatility: 0.001, RecentVolatility: 0.001, ReturnLong: -0.5}}
	b, err := Risk(calm, 75, p)
	require.NoError(t, err)
	assert.Equal(t, 75.0, b.Score)

	wild := []features.Snapshot{{Volatility: 1, RecentVolatility: 1}}
	b, err = Risk(wild, 0, p)
	require.NoError(t, err)
	assert.LessOrEqual(t, b.Score, 100.0)
	assert.GreaterOrEqual(t, b.Score, 0.0)

	b, err = Risk(wild, 140, p)
	require.NoError(t, err)
	assert.Equal(t, 100.0, b.Score)
}

func TestRisk_WeightsMustSum(t *testing.T) {
	p := domain.DefaultParameters().Risk
	p.CorrelationWeight = 0.5
	_, err := Risk(nil, 0, p)
	assert.Error(t, err)
}

func TestConfidence(t *testing.T) {
	p := domain.DefaultParameters().Confidence

	tests := []struct {
		name string
		in   ConfidenceInput
		want float64
	}{
		{"strong regime low risk", ConfidenceInput{Regime: 0.45, Risk: 35}, 0.9},
		{"saturated plus bonus clamps", ConfidenceInput{Regime: 0.8, Risk: 20, Consistent: true}, 1.0},
		{"risk ramp midpoint", ConfidenceInput{Regime: 0.5, Risk: 50}, 1.0 - 0.5*0.3},
		{"risk above ramp", ConfidenceInput{Regime: 0.25, Risk: 90}, 0.5 - 0.3},
		{"mean reversion base", ConfidenceInput{Regime: 0.05, Risk: 30, MeanReversionDriven: true, MRAlignment: 1}, 0.7},
		{"misaligned never negative", ConfidenceInput{Regime: 0, Risk: 100, MRAlignment: -1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(tt.in, p), 1e-12)
		})
	}
}

func TestTrendConsistent(t *testing.T) {
	up := []features.Snapshot{snap(0.02, 0.03, 0.05, 0, 0), snap(0.01, 0.02, 0.04, 0, 0)}
	assert.True(t, TrendConsistent(up, 0.01))

	mixed := []features.Snapshot{snap(0.02, -0.03, 0.05, 0, 0)}
	assert.False(t, TrendConsistent(mixed, 0.01))

	tiny := []features.Snapshot{snap(0.001, 0.001, 0.001, 0, 0)}
	assert.False(t, TrendConsistent(tiny, 0.01))
}

func TestBucket(t *testing.T) {
	p := domain.DefaultParameters().Confidence
	assert.Equal(t, domain.ConfidenceHigh, Bucket(0.7, p))
	assert.Equal(t, domain.ConfidenceMedium, Bucket(0.55, p))
	assert.Equal(t, domain.ConfidenceLow, Bucket(0.49, p))
}
