package features

import (
	"errors"
	"fmt"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
)

// ErrInsufficientData is returned when a history is shorter than the
// configured minimum. Callers mark the instrument ineligible for the date.
var ErrInsufficientData = errors.New("insufficient price history")

// Snapshot is the feature set of one instrument on one evaluation date.
type Snapshot = domain.FeatureSnapshot

// Compute derives features from h. minDataDays is the universe minimum;
// the longest configured window raises it when larger.
func Compute(h History, p domain.FeatureParams, minDataDays int) (Snapshot, error) {
	closes := h.Closes()
	n := len(closes)

	required := minDataDays
	for _, w := range []int{p.LongHorizon, p.LongMA, p.VolatilityWindow + 1} {
		if w > required {
			required = w
		}
	}
	if n < required {
		return Snapshot{}, fmt.Errorf("%s: %d sessions, need %d: %w", h.Symbol(), n, required, ErrInsufficientData)
	}

	last := closes[n-1]
	returns := metrics.Returns(closes)

	s := Snapshot{
		Symbol:           h.Symbol(),
		AsOf:             h.AsOf(),
		Close:            last,
		ReturnShort:      horizonReturn(closes, p.ShortHorizon),
		ReturnMedium:     horizonReturn(closes, p.MediumHorizon),
		ReturnLong:       horizonReturn(closes, p.LongHorizon),
		Volatility:       metrics.Stddev(tail(returns, p.VolatilityWindow)),
		RecentVolatility: metrics.Stddev(tail(returns, p.RecentVolatilityWindow)),
		ShortMA:          metrics.Mean(tail(closes, p.ShortMA)),
		LongMA:           metrics.Mean(tail(closes, p.LongMA)),
		RSI:              RSI(closes, p.RSIPeriod),
	}
	s.PriceVsShortMA = relative(last, s.ShortMA)
	s.PriceVsLongMA = relative(last, s.LongMA)

	band := Bollinger(closes, p.BollingerPeriod, p.BollingerStdMultiplier)
	s.BollingerPos = band.Position
	s.BollingerUpper = band.Upper
	s.BollingerLower = band.Lower
	s.BollingerMiddle = band.Middle

	return s, nil
}

// horizonReturn is close[-1]/close[-h] - 1: the change across an h-session
// window that includes the latest close.
func horizonReturn(closes []float64, h int) float64 {
	n := len(closes)
	if h <= 1 || n < h || closes[n-h] <= 0 {
		return 0
	}
	return closes[n-1]/closes[n-h] - 1
}

func relative(price, ref float64) float64 {
	if ref <= 0 {
		return 0
	}
	return price/ref - 1
}

func tail(values []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}
