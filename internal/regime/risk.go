package regime

import (
	"fmt"
	"math"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
	"capital-allocator/internal/metrics"
)

// RiskBreakdown exposes the components of a risk score.
type RiskBreakdown struct {
	Volatility  float64 // 0..100 after stability discount
	Stability   float64 // 0..1, applied discount share
	Correlation float64 // 0..100
	Floor       float64
	Score       float64 // 0..100
}

// Risk combines a volatility component and a diversification component.
// The result is floored at floor (the pressure risk floor) and clamped to
// [0, 100]. Weights that do not sum to WeightTotal are a configuration error.
func Risk(snaps []features.Snapshot, floor float64, p domain.RiskParams) (RiskBreakdown, error) {
	if math.Abs(p.VolatilityWeight+p.CorrelationWeight-p.WeightTotal) > 1e-9 {
		return RiskBreakdown{}, fmt.Errorf("risk weights %.4f + %.4f != %.4f",
			p.VolatilityWeight, p.CorrelationWeight, p.WeightTotal)
	}
	if len(snaps) == 0 {
		return RiskBreakdown{Floor: floor, Score: metrics.Clamp(floor, 0, 100)}, nil
	}

	var vols, recent, longReturns []float64
	for _, s := range snaps {
		vols = append(vols, s.Volatility)
		recent = append(recent, s.RecentVolatility)
		longReturns = append(longReturns, s.ReturnLong)
	}

	b := RiskBreakdown{Floor: floor}

	if p.VolatilityNormalization > 0 {
		b.Volatility = math.Min(100, metrics.Mean(vols)/p.VolatilityNormalization*100)
	}
	if trailing := metrics.Mean(vols); trailing > 0 {
		ratio := metrics.Mean(recent) / trailing
		if ratio < p.StabilityRatio {
			b.Stability = metrics.Clamp(1-ratio, 0, 1)
			b.Volatility *= 1 - b.Stability*p.StabilityDiscount
		}
	}

	b.Correlation = math.Max(0, p.CorrelationBase-metrics.PopulationStddev(longReturns)*p.CorrelationMultiplier)

	score := b.Volatility*p.VolatilityWeight + b.Correlation*p.CorrelationWeight
	b.Score = metrics.Clamp(math.Max(score, floor), 0, 100)
	return b, nil
}
