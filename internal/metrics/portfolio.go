package metrics

import "time"

// Point is one session of an account value series. Flow is capital added
// on that session, excluded from its return.
type Point struct {
	Date  time.Time
	Value float64
	Flow  float64
}

// Curve is a chronological account value series.
type Curve []Point

// Returns computes flow-adjusted session returns: (V_t - F_t) / V_{t-1} - 1.
// Sessions following a non-positive value are skipped.
func (c Curve) Returns() []float64 {
	var out []float64
	for i := 1; i < len(c); i++ {
		prev := c[i-1].Value
		if prev <= 0 {
			continue
		}
		out = append(out, (c[i].Value-c[i].Flow)/prev-1)
	}
	return out
}

// Index chains flow-adjusted returns into a series starting at 1, aligned
// with the curve's points.
func (c Curve) Index() []float64 {
	if len(c) == 0 {
		return nil
	}
	out := make([]float64, len(c))
	out[0] = 1
	for i := 1; i < len(c); i++ {
		out[i] = out[i-1]
		if prev := c[i-1].Value; prev > 0 {
			out[i] *= (c[i].Value - c[i].Flow) / prev
		}
	}
	return out
}

// Between returns the points dated within [from, to].
func (c Curve) Between(from, to time.Time) Curve {
	var out Curve
	for _, p := range c {
		if !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out
}

// PortfolioStats summarizes an account curve.
type PortfolioStats struct {
	Sessions       int     `json:"sessions"`
	Sharpe         float64 `json:"sharpe"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	TotalReturnPct float64 `json:"total_return_pct"`
}

// Portfolio computes the annualized Sharpe ratio (risk-free adjusted, sample
// standard deviation) and maximum drawdown of a curve.
func Portfolio(c Curve, riskFree float64, tradingDays int) PortfolioStats {
	idx := c.Index()
	st := PortfolioStats{
		Sessions:       len(c),
		Sharpe:         SharpeRatio(c.Returns(), riskFree, tradingDays),
		MaxDrawdownPct: MaxDrawdownPct(idx),
	}
	if len(idx) > 0 {
		st.TotalReturnPct = (idx[len(idx)-1] - 1) * 100
	}
	return st
}
