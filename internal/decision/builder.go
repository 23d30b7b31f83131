package decision

import (
	"math"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
)

// Split divides the sessions of curve within [from, to] into an earlier train
// slice and a later test slice. The train slice holds floor(n·fraction)
// sessions, at least one; the test slice gets the rest and is empty when the
// window holds a single session.
func Split(curve metrics.Curve, from, to time.Time, fraction float64) (train, test metrics.Curve) {
	window := curve.Between(from, to)
	if len(window) == 0 {
		return nil, nil
	}
	n := int(math.Floor(float64(len(window))*fraction + 1e-9))
	n = max(1, min(n, len(window)))
	return window[:n], window[n:]
}

// testTrades keeps trades dated on or after the test slice's first session.
func testTrades(trades []*domain.Trade, test metrics.Curve) []*domain.Trade {
	if len(test) == 0 {
		return nil
	}
	first := test[0].Date
	last := test[len(test)-1].Date
	var out []*domain.Trade
	for _, t := range trades {
		d := domain.Day(t.TradeDate)
		if !d.Before(first) && !d.After(last) {
			out = append(out, t)
		}
	}
	return out
}

func testSignals(signals []*domain.DailySignal, test metrics.Curve) []*domain.DailySignal {
	if len(test) == 0 {
		return nil
	}
	first := test[0].Date
	last := test[len(test)-1].Date
	var out []*domain.DailySignal
	for _, s := range signals {
		d := domain.Day(s.TradeDate)
		if !d.Before(first) && !d.After(last) {
			out = append(out, s)
		}
	}
	return out
}
