// Package breaker implements the intra-month drawdown circuit breaker.
package breaker

import (
	"math"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/ledger"
	"capital-allocator/internal/lookup"
)

// minSessions is the month-to-date history needed before the breaker can trip.
const minSessions = 2

// State is the circuit breaker status for one evaluation date. Derived on
// every run, never persisted.
type State struct {
	MonthStart  time.Time
	AsOf        time.Time
	Sessions    int
	PnL         float64 // month-to-date mark-to-market P&L at the last session
	CapitalBase float64 // month-start market value plus month buys
	Drawdown    float64 // from the month's running peak, as a fraction
	Triggered   bool
	Multiplier  float64
}

// Check marks the book to market on every session of asOf's month strictly
// before asOf. The account index starts at 1 and moves with P&L relative to
// capital at risk; drawdown is measured from its running peak. Fewer than
// two sessions never trip.
func Check(trades []*domain.Trade, closes *lookup.Closes, asOf time.Time, p domain.CircuitBreakerParams) State {
	asOf = domain.Day(asOf)
	monthStart := domain.MonthStart(asOf)
	st := State{MonthStart: monthStart, AsOf: asOf, Multiplier: 1}

	opening := ledger.Build(trades, monthStart)
	startValue := opening.MarketValue(closes, monthStart.AddDate(0, 0, -1))

	peak := 1.0
	for _, d := range closes.Sessions(monthStart, asOf) {
		book := ledger.Build(trades, d.AddDate(0, 0, 1))
		bought := book.Bought - opening.Bought
		sold := book.Sold - opening.Sold

		base := startValue + bought
		if base <= 0 {
			continue
		}
		pnl := book.MarketValue(closes, d) + sold - startValue - bought
		index := 1 + pnl/base

		st.Sessions++
		st.PnL = pnl
		st.CapitalBase = base
		peak = math.Max(peak, index)
		st.Drawdown = math.Max(st.Drawdown, (peak-index)/peak)
	}

	if st.Sessions >= minSessions && st.Drawdown >= p.IntramonthDrawdownLimit {
		st.Triggered = true
		st.Multiplier = p.Reduction
	}
	return st
}
