// Package tuning nudges bounded decision parameters from aggregated trade
// performance. Rules are data: an ordered list of predicates, each bound to
// one tunable parameter and a direction.
package tuning

import (
	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
)

// Direction of a parameter nudge.
type Direction int

const (
	Down Direction = -1
	Up   Direction = 1
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Facts is what rules are evaluated against.
type Facts struct {
	Breakdown metrics.Breakdown
	Portfolio metrics.PortfolioStats
	Current   domain.Parameters
}

// Rule moves Param by Step bound-steps in Direction when When holds.
// Loosening rules are the counterpart of a one-way tightening rule and only
// run when symmetric loosening is enabled.
type Rule struct {
	Name      string
	Param     string
	Direction Direction
	Loosening bool
	Step      float64 // multiple of the bound step; 0 means 1
	When      func(f Facts) bool
}

func (r Rule) scale() float64 {
	if r.Step == 0 {
		return 1
	}
	return r.Step
}

// enough reports whether g has the trades a group rule needs.
func (f Facts) enough(g metrics.GroupStats) bool {
	return g.Count >= f.Current.Tuning.MinGroupTrades
}

func momentumAggressive(f Facts) bool {
	g := f.Breakdown.Condition(domain.ConditionMomentum)
	return f.enough(g) && g.Aggressive
}

func momentumConservative(f Facts) bool {
	g := f.Breakdown.Condition(domain.ConditionMomentum)
	return f.enough(g) && g.Conservative
}

func choppyConservative(f Facts) bool {
	g := f.Breakdown.Condition(domain.ConditionChoppy)
	return f.enough(g) && g.Conservative
}

func choppyHealthy(f Facts) bool {
	g := f.Breakdown.Condition(domain.ConditionChoppy)
	return f.enough(g) && !g.Conservative && g.Aggressive
}

func drawdownExceeded(f Facts) bool {
	return f.Portfolio.MaxDrawdownPct > f.Current.Validation.MaxDrawdownTolerance
}

func sharpeBelowTarget(f Facts) bool {
	return f.Portfolio.Sharpe < f.Current.Validation.MinSharpeTarget
}

func sharpeGood(f Facts) bool {
	return f.Portfolio.Sharpe > f.Current.Validation.MinSharpeTarget
}

func sharpeStrong(f Facts) bool {
	return f.Portfolio.Sharpe > f.Current.Validation.MinSharpeTarget*f.Current.Tuning.SharpeAggressiveMultiplier
}

func drawdownLow(f Facts) bool {
	v := f.Current.Validation
	return f.Portfolio.MaxDrawdownPct < v.MaxDrawdownTolerance*f.Current.Tuning.LowDrawdownFraction
}

func sellsLosing(f Facts) bool {
	g := f.Breakdown.SignalType(domain.SignalTypeDefensive)
	return f.enough(g) && g.WinRatePct < f.Current.Tuning.ConservativeWinRate
}

// confidenceSpread is the win-rate gap between high and low confidence trades.
// ok is false when either bucket is too thin to compare.
func confidenceSpread(f Facts) (spread float64, ok bool) {
	hi := f.Breakdown.Bucket(domain.ConfidenceHigh)
	lo := f.Breakdown.Bucket(domain.ConfidenceLow)
	if !f.enough(hi) || !f.enough(lo) {
		return 0, false
	}
	return hi.WinRatePct - lo.WinRatePct, true
}

func confidenceInformative(f Facts) bool {
	s, ok := confidenceSpread(f)
	return ok && s > f.Current.Tuning.ConfidenceSpread
}

func confidenceUninformative(f Facts) bool {
	s, ok := confidenceSpread(f)
	return ok && s < -f.Current.Tuning.ConfidenceSpread
}

func stalling(f Facts) bool {
	o := f.Breakdown.Overall
	return o.EligibleDays > 0 && o.Participation < f.Current.Tuning.StallParticipation
}

func lowConfidenceConservative(f Facts) bool {
	g := f.Breakdown.Bucket(domain.ConfidenceLow)
	return f.enough(g) && g.Conservative
}

func meanReversionConservative(f Facts) bool {
	g := f.Breakdown.SignalType(domain.SignalTypeMeanReversion)
	return f.enough(g) && g.Conservative
}

func meanReversionAggressive(f Facts) bool {
	g := f.Breakdown.SignalType(domain.SignalTypeMeanReversion)
	return f.enough(g) && !g.Conservative && g.Aggressive
}

// DefaultRules returns the rule list in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		// Allocations by risk tier.
		{Name: "momentum_underdeployed", Param: "decision.allocation_low_risk", Direction: Up, When: momentumAggressive},
		{Name: "momentum_underdeployed", Param: "decision.allocation_medium_risk", Direction: Up, When: momentumAggressive},
		{Name: "momentum_overdeployed", Param: "decision.allocation_low_risk", Direction: Down, When: momentumConservative},
		{Name: "momentum_overdeployed", Param: "decision.allocation_medium_risk", Direction: Down, When: momentumConservative},

		// Choppy-market exposure.
		{Name: "choppy_losing", Param: "decision.allocation_neutral", Direction: Down, When: choppyConservative},
		{Name: "choppy_losing", Param: "risk.medium_threshold", Direction: Down, When: choppyConservative},
		{Name: "choppy_recovered", Param: "decision.allocation_neutral", Direction: Up, Loosening: true, When: choppyHealthy},
		{Name: "choppy_recovered", Param: "risk.medium_threshold", Direction: Up, Loosening: true, When: choppyHealthy},

		// Drawdown-driven risk thresholds.
		{Name: "drawdown_exceeded", Param: "risk.high_threshold", Direction: Down, When: drawdownExceeded},
		{Name: "drawdown_exceeded", Param: "decision.allocation_high_risk", Direction: Down, When: drawdownExceeded},
		{Name: "drawdown_low_sharpe_good", Param: "risk.high_threshold", Direction: Up, When: func(f Facts) bool {
			return drawdownLow(f) && sharpeGood(f)
		}},
		{Name: "drawdown_low_sharpe_good", Param: "decision.allocation_high_risk", Direction: Up, Step: 0.5, When: func(f Facts) bool {
			return drawdownLow(f) && sharpeGood(f)
		}},

		// Sharpe-driven selectivity.
		{Name: "sharpe_below_target", Param: "regime.bullish_threshold", Direction: Up, When: sharpeBelowTarget},
		{Name: "sharpe_below_target", Param: "risk.medium_threshold", Direction: Down, When: sharpeBelowTarget},
		{Name: "sharpe_strong", Param: "regime.bullish_threshold", Direction: Down, When: sharpeStrong},
		{Name: "sharpe_strong", Param: "risk.medium_threshold", Direction: Up, Loosening: true, When: func(f Facts) bool {
			return sharpeStrong(f) && drawdownLow(f)
		}},

		// Sell percentage.
		{Name: "sells_premature", Param: "decision.sell_percentage", Direction: Down, When: sellsLosing},
		{Name: "drawdown_exceeded", Param: "decision.sell_percentage", Direction: Up, When: drawdownExceeded},

		// Confidence scaling.
		{Name: "confidence_informative", Param: "sizing.confidence_scaling", Direction: Up, When: confidenceInformative},
		{Name: "confidence_uninformative", Param: "sizing.confidence_scaling", Direction: Down, When: confidenceUninformative},

		// Minimum allocation gate.
		{Name: "stalling", Param: "sizing.min_allocation_confidence_gate", Direction: Down, When: stalling},
		{Name: "low_confidence_losing", Param: "sizing.min_allocation_confidence_gate", Direction: Up, When: lowConfidenceConservative},

		// Mean reversion.
		{Name: "mean_reversion_losing", Param: "mean_reversion.rsi_oversold", Direction: Down, When: meanReversionConservative},
		{Name: "mean_reversion_losing", Param: "mean_reversion.bb_oversold", Direction: Down, When: meanReversionConservative},
		{Name: "mean_reversion_losing", Param: "mean_reversion.rsi_overbought", Direction: Up, When: meanReversionConservative},
		{Name: "mean_reversion_losing", Param: "mean_reversion.allocation", Direction: Down, When: meanReversionConservative},
		{Name: "mean_reversion_winning", Param: "mean_reversion.rsi_oversold", Direction: Up, Loosening: true, When: meanReversionAggressive},
		{Name: "mean_reversion_winning", Param: "mean_reversion.bb_oversold", Direction: Up, Loosening: true, When: meanReversionAggressive},
		{Name: "mean_reversion_winning", Param: "mean_reversion.rsi_overbought", Direction: Down, Loosening: true, When: meanReversionAggressive},
		{Name: "mean_reversion_winning", Param: "mean_reversion.allocation", Direction: Up, Loosening: true, When: meanReversionAggressive},
	}
}
