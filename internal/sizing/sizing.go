// Package sizing turns a base allocation fraction into a dollar amount.
package sizing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/lookup"
)

// ConfidenceScale maps confidence in [0,1] to [1-f, 1].
func ConfidenceScale(confidence, f float64) float64 {
	return 1 - f + f*confidence
}

// KellyOutcomes returns fractional returns of BUY trades dated within the
// lookback window before asOf, each marked to its symbol's last close strictly
// before asOf. Trades without a mark are skipped.
func KellyOutcomes(trades []*domain.Trade, closes *lookup.Closes, asOf time.Time, p domain.SizingParams) []float64 {
	asOf = domain.Day(asOf)
	from := asOf.AddDate(0, 0, -p.KellyLookbackDays)

	var out []float64
	for _, t := range trades {
		d := domain.Day(t.TradeDate)
		if t.Action != domain.ActionBuy || d.Before(from) || !d.Before(asOf) || t.Price <= 0 {
			continue
		}
		mark, err := closes.Before(t.Symbol, asOf)
		if err != nil {
			continue
		}
		out = append(out, mark/t.Price-1)
	}
	return out
}

// HalfKelly returns half the Kelly fraction implied by outcomes, clamped to
// [KellyFloor, KellyCap]. Fewer than KellyMinTrades outcomes yield KellyDefault.
func HalfKelly(outcomes []float64, p domain.SizingParams) float64 {
	if len(outcomes) < p.KellyMinTrades {
		return p.KellyDefault
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, r := range outcomes {
		if r > 0 {
			wins++
			winSum += r
		} else if r < 0 {
			losses++
			lossSum += -r
		}
	}
	switch {
	case wins == 0:
		return p.KellyFloor
	case losses == 0:
		return p.KellyCap
	}

	w := float64(wins) / float64(len(outcomes))
	ratio := (winSum / float64(wins)) / (lossSum / float64(losses))
	kelly := (w*ratio - (1 - w)) / ratio

	return math.Min(p.KellyCap, math.Max(p.KellyFloor, kelly/2))
}

// CapitalFactor returns the factor of the highest tier whose threshold capital
// reaches, or CapitalBaseFactor below the first tier. Never below CapitalFloor.
func CapitalFactor(capital float64, p domain.SizingParams) float64 {
	f := p.CapitalBaseFactor
	for _, tier := range p.CapitalTiers {
		if capital >= tier.Threshold {
			f = tier.Factor
		}
	}
	return math.Max(f, p.CapitalFloor)
}

// Input collects everything Size needs.
type Input struct {
	BaseFraction       float64
	Confidence         float64
	HalfKelly          float64
	Capital            float64 // portfolio value used for tiering
	PressureMultiplier float64
	BreakerMultiplier  float64
	Budget             decimal.Decimal
}

// Result is the sized allocation. Hold is set when the amount fell below the
// minimum and confidence did not clear the gate.
type Result struct {
	Fraction float64
	Amount   decimal.Decimal
	Hold     bool
	Floored  bool // raised to the minimum allocation amount
}

// Size computes the fraction of budget to deploy and its dollar amount,
// rounded down to cents.
func Size(in Input, p domain.SizingParams) Result {
	scale := math.Min(ConfidenceScale(in.Confidence, p.ConfidenceScaling), in.HalfKelly)
	fraction := in.BaseFraction * scale * CapitalFactor(in.Capital, p) * in.PressureMultiplier * in.BreakerMultiplier
	fraction = math.Max(0, math.Min(1, fraction))

	amount := in.Budget.Mul(decimal.NewFromFloat(fraction)).RoundDown(2)
	min := decimal.NewFromFloat(p.MinAllocationAmount)
	if amount.GreaterThanOrEqual(min) {
		return Result{Fraction: fraction, Amount: amount}
	}

	if in.Confidence < p.MinAllocationConfidenceGate || !in.Budget.IsPositive() {
		return Result{Fraction: fraction, Amount: decimal.Zero, Hold: true}
	}
	if min.GreaterThan(in.Budget) {
		min = in.Budget
	}
	min = min.RoundDown(2)
	return Result{Fraction: min.Div(in.Budget).InexactFloat64(), Amount: min, Floored: true}
}
