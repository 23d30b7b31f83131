package metrics

import (
	"math"
	"sort"
)

// Mean calculates the arithmetic mean. Empty input returns 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stddev calculates the sample standard deviation (n-1 denominator).
// Fewer than two samples return 0.
func Stddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// PopulationStddev uses the n denominator, as Bollinger bands do.
func PopulationStddev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// Percentile uses linear interpolation over a copy of values.
// p is a fraction (0.10 = 10th percentile).
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Returns converts a price or index series to simple period returns.
// Non-positive predecessors yield a zero return.
func Returns(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		if series[i-1] > 0 {
			out[i-1] = series[i]/series[i-1] - 1
		}
	}
	return out
}

// MaxDrawdownPct returns the worst peak-to-trough decline of an index
// series in percent (0..100). Series must be chronological.
func MaxDrawdownPct(index []float64) float64 {
	peak := 0.0
	worst := 0.0
	for _, v := range index {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > worst {
			worst = dd
		}
	}
	return worst * 100
}

// MaxConsecutiveLosses finds the longest streak of P&L <= 0.
// Values must be chronological.
func MaxConsecutiveLosses(pnls []float64) int {
	maxStreak, current := 0, 0
	for _, v := range pnls {
		if v <= 0 {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}

// WinRatePct calculates wins / total in percent.
func WinRatePct(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SharpeRatio annualizes daily returns against a yearly risk-free rate:
// (mean·days − rf) / (σ·√days). Zero volatility returns 0.
func SharpeRatio(daily []float64, riskFree float64, days int) float64 {
	if len(daily) < 2 || days <= 0 {
		return 0
	}
	sd := Stddev(daily)
	if sd == 0 {
		return 0
	}
	annualReturn := Mean(daily) * float64(days)
	annualVol := sd * math.Sqrt(float64(days))
	return (annualReturn - riskFree) / annualVol
}
