package features

import "capital-allocator/internal/metrics"

// RSI uses Wilder smoothing: the first average is a simple mean over period
// deltas, later ones decay by (period-1)/period. Fewer than period+1 closes
// or a flat window return the neutral 50.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// Band is a Bollinger band over the last period closes.
type Band struct {
	Middle   float64
	Upper    float64
	Lower    float64
	Position float64 // (close - middle) / (k·σ), clamped to [-1, 1]
}

// Bollinger computes the band with population σ. Fewer than period closes
// yield a zero position.
func Bollinger(closes []float64, period int, k float64) Band {
	if period <= 0 || len(closes) < period {
		return Band{}
	}
	window := closes[len(closes)-period:]
	mid := metrics.Mean(window)
	sd := metrics.PopulationStddev(window)

	b := Band{Middle: mid, Upper: mid + k*sd, Lower: mid - k*sd}
	if sd == 0 || k == 0 {
		return b
	}
	b.Position = metrics.Clamp((closes[len(closes)-1]-mid)/(k*sd), -1, 1)
	return b
}
