package evaluation

import (
	"math"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
)

// Trend is a least-squares fit of price on session index.
type Trend struct {
	Slope      float64 // normalized by mean price, per session
	RSquared   float64
	Volatility float64 // population stddev of session returns
}

// FitTrend regresses prices on 0..n-1. Fewer than two prices yield the zero Trend.
func FitTrend(prices []float64) Trend {
	n := len(prices)
	if n < 2 {
		return Trend{}
	}

	xMean := float64(n-1) / 2
	yMean := metrics.Mean(prices)

	var sxy, sxx float64
	for i, y := range prices {
		dx := float64(i) - xMean
		sxy += dx * (y - yMean)
		sxx += dx * dx
	}
	slope := sxy / sxx

	var ssRes, ssTot float64
	for i, y := range prices {
		pred := yMean + slope*(float64(i)-xMean)
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - yMean) * (y - yMean)
	}

	t := Trend{Volatility: metrics.PopulationStddev(metrics.Returns(prices))}
	if ssTot > 0 {
		t.RSquared = 1 - ssRes/ssTot
	}
	if yMean != 0 {
		t.Slope = slope / yMean
	}
	return t
}

// Classify labels a trailing price window momentum, choppy or mixed. A window
// shorter than ConditionWindow is unknown.
func Classify(prices []float64, p domain.EvaluationParams) string {
	if len(prices) < p.ConditionWindow || len(prices) < 2 {
		return domain.ConditionUnknown
	}
	t := FitTrend(prices[len(prices)-p.ConditionWindow:])

	switch {
	case t.RSquared > p.MomentumRSquared && math.Abs(t.Slope) > p.MomentumSlope:
		return domain.ConditionMomentum
	case t.RSquared < p.ChoppyRSquared || t.Volatility > p.ChoppyVolatility:
		return domain.ConditionChoppy
	}
	return domain.ConditionMixed
}

// RegimeLabel classifies a recorded regime score with the evaluation cutoffs.
func RegimeLabel(score float64, p domain.EvaluationParams) string {
	switch {
	case score > p.RegimeBullish:
		return domain.RegimeBullish
	case score < p.RegimeBearish:
		return domain.RegimeBearish
	}
	return domain.RegimeNeutral
}
