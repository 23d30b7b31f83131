// Package regime scores market direction, risk and conviction from the
// universe's feature snapshots.
package regime

import (
	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
	"capital-allocator/internal/metrics"
)

// Score averages each asset's momentum and moving-average position, clamped
// to [-1, 1]. No snapshots score 0.
func Score(snaps []features.Snapshot, p domain.RegimeParams) float64 {
	if len(snaps) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range snaps {
		momentum := (s.ReturnShort + s.ReturnMedium + s.ReturnLong) / 3
		total += momentum*p.MomentumWeight +
			s.PriceVsShortMA*p.ShortMAWeight +
			s.PriceVsLongMA*p.LongMAWeight
	}
	return metrics.Clamp(total/float64(len(snaps)), -1, 1)
}

// Thresholds are the volatility-adjusted regime cutoffs for one date.
type Thresholds struct {
	Bullish float64
	Bearish float64
	Factor  float64
}

// AdaptiveThresholds widens both cutoffs when current volatility exceeds the
// baseline and narrows them when it is below, within the configured clamp.
func AdaptiveThresholds(currentVol float64, p domain.RegimeParams) Thresholds {
	ratio := 1.0
	if p.BaseVolatility > 0 {
		ratio = currentVol / p.BaseVolatility
	}
	factor := metrics.Clamp(1+p.VolatilityAdjustmentFactor*(ratio-1), p.AdaptiveClampMin, p.AdaptiveClampMax)
	return Thresholds{
		Bullish: p.BullishThreshold * factor,
		Bearish: p.BearishThreshold * factor,
		Factor:  factor,
	}
}

// Label classifies a score against thresholds. Scores exactly on a cutoff are neutral.
func (t Thresholds) Label(score float64) string {
	switch {
	case score > t.Bullish:
		return domain.RegimeBullish
	case score < t.Bearish:
		return domain.RegimeBearish
	default:
		return domain.RegimeNeutral
	}
}

// AverageVolatility is the mean trailing volatility across snapshots.
func AverageVolatility(snaps []features.Snapshot) float64 {
	vols := make([]float64, len(snaps))
	for i, s := range snaps {
		vols[i] = s.Volatility
	}
	return metrics.Mean(vols)
}

// Transition labels the change from yesterday's score. A nil yesterday is stable.
func Transition(today float64, yesterday *float64, p domain.RegimeParams) string {
	if yesterday == nil {
		return domain.TransitionStable
	}
	prev := *yesterday
	delta := today - prev

	switch {
	case today > p.TransitionThreshold && prev < -p.TransitionThreshold:
		return domain.TransitionTurningBullish
	case today < -p.TransitionThreshold && prev > p.TransitionThreshold:
		return domain.TransitionTurningBearish
	case today > p.BullishThreshold && delta < p.MomentumLossThreshold:
		return domain.TransitionLosingMomentum
	case today > 0 && delta > p.MomentumGainThreshold:
		return domain.TransitionGainingMomentum
	}
	return domain.TransitionStable
}
