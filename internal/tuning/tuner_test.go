package tuning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
)

// neutralFacts fires no default rule: Sharpe on target, drawdown moderate,
// no groups.
func neutralFacts() Facts {
	p := domain.DefaultParameters()
	return Facts{
		Breakdown: metrics.Breakdown{},
		Portfolio: metrics.PortfolioStats{Sharpe: p.Validation.MinSharpeTarget, MaxDrawdownPct: 10},
		Current:   p,
	}
}

func group(dim, label string, count int, aggressive, conservative bool) metrics.GroupStats {
	return metrics.GroupStats{Dimension: dim, Label: label, Count: count, Aggressive: aggressive, Conservative: conservative}
}

func changed(res Result) map[string]Change {
	out := make(map[string]Change)
	for _, c := range res.Changes {
		out[c.Param] = c
	}
	return out
}

func TestTune_NoRulesFire(t *testing.T) {
	res, err := NewTuner().Tune(neutralFacts())
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Equal(t, neutralFacts().Current.Decision, res.Params.Decision)
}

func TestTune_MomentumAggressive(t *testing.T) {
	f := neutralFacts()
	f.Breakdown.ByCondition = map[string]metrics.GroupStats{
		domain.ConditionMomentum: group(metrics.DimensionCondition, domain.ConditionMomentum, 10, true, false),
	}

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)

	c := changed(res)
	require.Contains(t, c, "decision.allocation_low_risk")
	assert.InDelta(t, 0.85, c["decision.allocation_low_risk"].New, 1e-12)
	assert.Equal(t, "momentum_underdeployed", c["decision.allocation_low_risk"].Rule)
	assert.InDelta(t, 0.55, res.Params.Decision.AllocationMediumRisk, 1e-12)

	// Input untouched.
	assert.Equal(t, 0.8, f.Current.Decision.AllocationLowRisk)
}

func TestTune_GroupTooThin(t *testing.T) {
	f := neutralFacts()
	f.Breakdown.ByCondition = map[string]metrics.GroupStats{
		domain.ConditionMomentum: group(metrics.DimensionCondition, domain.ConditionMomentum, 4, true, false),
	}

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}

func TestTune_ClampsToBounds(t *testing.T) {
	f := neutralFacts()
	f.Current.Decision.AllocationLowRisk = 1.0
	f.Breakdown.ByCondition = map[string]metrics.GroupStats{
		domain.ConditionMomentum: group(metrics.DimensionCondition, domain.ConditionMomentum, 10, true, false),
	}

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Params.Decision.AllocationLowRisk)
	assert.NotContains(t, changed(res), "decision.allocation_low_risk")
	assert.Contains(t, res.Fired, "momentum_underdeployed:decision.allocation_low_risk")
}

func TestTune_DrawdownBidirectional(t *testing.T) {
	f := neutralFacts()
	f.Portfolio.MaxDrawdownPct = 20

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)
	assert.InDelta(t, 67.5, res.Params.Risk.HighThreshold, 1e-12)
	assert.InDelta(t, 0.25, res.Params.Decision.AllocationHighRisk, 1e-12)
	assert.InDelta(t, 0.75, res.Params.Decision.SellPercentage, 1e-12)

	f = neutralFacts()
	f.Portfolio.MaxDrawdownPct = 3
	f.Portfolio.Sharpe = 1.2

	res, err = NewTuner().Tune(f)
	require.NoError(t, err)
	assert.InDelta(t, 72.5, res.Params.Risk.HighThreshold, 1e-12)
	assert.InDelta(t, 0.325, res.Params.Decision.AllocationHighRisk, 1e-12)
}

func TestTune_SharpeBelowTarget(t *testing.T) {
	f := neutralFacts()
	f.Portfolio.Sharpe = 0.4

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)
	assert.InDelta(t, 0.35, res.Params.Regime.BullishThreshold, 1e-12)
	assert.InDelta(t, 37.5, res.Params.Risk.MediumThreshold, 1e-12)
}

func TestTune_LooseningBehindFlag(t *testing.T) {
	f := neutralFacts()
	f.Breakdown.BySignalType = map[string]metrics.GroupStats{
		domain.SignalTypeMeanReversion: group(metrics.DimensionSignalType, domain.SignalTypeMeanReversion, 8, true, false),
	}

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Len(t, res.Skipped, 4)

	f.Current.Tuning.EnableSymmetricLoosening = true
	res, err = NewTuner().Tune(f)
	require.NoError(t, err)
	assert.InDelta(t, 32, res.Params.MeanReversion.RSIOversold, 1e-12)
	assert.InDelta(t, -0.45, res.Params.MeanReversion.BBOversold, 1e-12)
	assert.InDelta(t, 68, res.Params.MeanReversion.RSIOverbought, 1e-12)
	assert.InDelta(t, 0.45, res.Params.MeanReversion.Allocation, 1e-12)
}

func TestTune_MeanReversionTightens(t *testing.T) {
	f := neutralFacts()
	f.Breakdown.BySignalType = map[string]metrics.GroupStats{
		domain.SignalTypeMeanReversion: group(metrics.DimensionSignalType, domain.SignalTypeMeanReversion, 8, false, true),
	}

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)
	assert.InDelta(t, 28, res.Params.MeanReversion.RSIOversold, 1e-12)
	assert.InDelta(t, -0.55, res.Params.MeanReversion.BBOversold, 1e-12)
	assert.InDelta(t, 0.35, res.Params.MeanReversion.Allocation, 1e-12)
}

func TestTune_ConfidenceSpread(t *testing.T) {
	f := neutralFacts()
	hi := group(metrics.DimensionConfidence, domain.ConfidenceHigh, 10, false, false)
	hi.WinRatePct = 70
	lo := group(metrics.DimensionConfidence, domain.ConfidenceLow, 10, false, false)
	lo.WinRatePct = 45
	f.Breakdown.ByBucket = map[string]metrics.GroupStats{
		domain.ConfidenceHigh: hi,
		domain.ConfidenceLow:  lo,
	}

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, res.Params.Sizing.ConfidenceScaling, 1e-12)
}

func TestTune_Stalling(t *testing.T) {
	f := neutralFacts()
	f.Breakdown.Overall = metrics.GroupStats{EligibleDays: 40, TradeDays: 4, Participation: 0.1}

	res, err := NewTuner().Tune(f)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, res.Params.Sizing.MinAllocationConfidenceGate, 1e-12)
}

func TestTune_Errors(t *testing.T) {
	always := func(Facts) bool { return true }

	_, err := NewTuner(Rule{Name: "x", Param: "no.such", Direction: Up, When: always}).Tune(neutralFacts())
	assert.Error(t, err)

	f := neutralFacts()
	delete(f.Current.Tuning.Bounds, "decision.sell_percentage")
	_, err = NewTuner(Rule{Name: "x", Param: "decision.sell_percentage", Direction: Up, When: always}).Tune(f)
	assert.Error(t, err)
}
