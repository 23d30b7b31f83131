package regime

import (
	"math"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
	"capital-allocator/internal/metrics"
)

// ConfidenceInput collects the terms of a confidence score.
type ConfidenceInput struct {
	Regime              float64
	Risk                float64
	Consistent          bool    // see TrendConsistent
	MeanReversionDriven bool    // action comes from an oversold/overbought opportunity
	MRAlignment         float64 // -1..1, sign of agreement between action and mean-reversion state
}

// Confidence returns conviction in [0, 1].
func Confidence(in ConfidenceInput, p domain.ConfidenceParams) float64 {
	base := 0.0
	if in.MeanReversionDriven {
		base = p.MeanReversionBase
	} else if p.RegimeDivisor > 0 {
		base = math.Min(1, math.Abs(in.Regime)/p.RegimeDivisor)
	}

	penalty := 0.0
	if span := p.RiskPenaltyMax - p.RiskPenaltyMin; span > 0 {
		penalty = metrics.Clamp((in.Risk-p.RiskPenaltyMin)/span, 0, 1)
	} else if in.Risk > p.RiskPenaltyMin {
		penalty = 1
	}

	c := base - penalty*p.RiskPenaltyMultiplier
	if in.Consistent {
		c += p.ConsistencyBonus
	}
	c += metrics.Clamp(in.MRAlignment, -1, 1) * p.MRAlignmentBonus

	return metrics.Clamp(c, 0, 1)
}

// TrendConsistent reports whether every horizon return of every asset shares
// one sign and the mean return's magnitude exceeds threshold.
func TrendConsistent(snaps []features.Snapshot, threshold float64) bool {
	if len(snaps) == 0 {
		return false
	}
	var all []float64
	pos, neg := 0, 0
	for _, s := range snaps {
		for _, r := range []float64{s.ReturnShort, s.ReturnMedium, s.ReturnLong} {
			all = append(all, r)
			switch {
			case r > 0:
				pos++
			case r < 0:
				neg++
			}
		}
	}
	if pos != len(all) && neg != len(all) {
		return false
	}
	return math.Abs(metrics.Mean(all)) > threshold
}

// Bucket maps a confidence score to high/medium/low.
func Bucket(confidence float64, p domain.ConfidenceParams) string {
	switch {
	case confidence >= p.BucketHigh:
		return domain.ConfidenceHigh
	case confidence >= p.BucketMedium:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
