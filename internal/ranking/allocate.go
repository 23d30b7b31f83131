package ranking

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"capital-allocator/internal/domain"
)

// Allocate splits budget across the strictly positive entries of ranked, which
// must already be ordered by Rank. Amounts are rounded down to cents and the
// rounding residual goes to the top instrument; the total never exceeds budget.
// Returns nil when nothing is eligible or the budget is not positive.
func Allocate(ranked []Ranked, budget decimal.Decimal, p domain.AllocationParams) map[string]decimal.Decimal {
	if !budget.IsPositive() {
		return nil
	}

	var eligible []Ranked
	for _, r := range ranked {
		if r.Score > 0 {
			eligible = append(eligible, r)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	weights := Weights(eligible, p)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	target := budget.RoundDown(2)
	if sum < 1-1e-9 {
		target = budget.Mul(decimal.NewFromFloat(sum)).RoundDown(2)
	}

	out := make(map[string]decimal.Decimal, len(weights))
	allocated := decimal.Zero
	for i, w := range weights {
		amt := budget.Mul(decimal.NewFromFloat(w)).RoundDown(2)
		if amt.GreaterThan(target.Sub(allocated)) {
			amt = target.Sub(allocated)
		}
		out[eligible[i].Symbol] = amt
		allocated = allocated.Add(amt)
	}

	top := eligible[0].Symbol
	out[top] = out[top].Add(target.Sub(allocated))

	for sym, amt := range out {
		if !amt.IsPositive() {
			delete(out, sym)
		}
	}
	return out
}

// Weights returns budget fractions aligned with eligible (all scores positive,
// ordered best first). One instrument takes everything; two use the fixed
// split; three or more clamp the proportional weights of the top three into
// their bands and renormalize to one.
func Weights(eligible []Ranked, p domain.AllocationParams) []float64 {
	switch len(eligible) {
	case 0:
		return nil
	case 1:
		return []float64{1}
	case 2:
		return []float64{p.TwoAssetTop, p.TwoAssetSecond}
	}

	total := 0.0
	for _, r := range eligible {
		total += r.Score
	}

	bands := [3][2]float64{
		{p.TopMin, p.TopMax},
		{p.SecondMin, p.SecondMax},
		{p.ThirdMin, p.ThirdMax},
	}
	weights := make([]float64, len(eligible))
	clamped := 0.0
	for i := 0; i < 3; i++ {
		w := eligible[i].Score / total
		w = math.Min(bands[i][1], math.Max(bands[i][0], w))
		weights[i] = w
		clamped += w
	}
	for i := 0; i < 3; i++ {
		weights[i] /= clamped
	}
	return weights
}

// ValidateBands reports tiers whose minimum exceeds the maximum.
func ValidateBands(p domain.AllocationParams) []string {
	var problems []string
	check := func(tier string, min, max float64) {
		if min > max {
			problems = append(problems, fmt.Sprintf("allocation band %s: min %.4f > max %.4f", tier, min, max))
		}
	}
	check("top", p.TopMin, p.TopMax)
	check("second", p.SecondMin, p.SecondMax)
	check("third", p.ThirdMin, p.ThirdMax)
	if p.TwoAssetTop+p.TwoAssetSecond > 1+1e-9 {
		problems = append(problems, fmt.Sprintf("two-asset split sums to %.4f > 1", p.TwoAssetTop+p.TwoAssetSecond))
	}
	return problems
}

// Even splits budget equally across symbols, rounded down to cents, with the
// residual on the first symbol.
func Even(symbols []string, budget decimal.Decimal) map[string]decimal.Decimal {
	if len(symbols) == 0 || !budget.IsPositive() {
		return nil
	}
	target := budget.RoundDown(2)
	share := target.Div(decimal.NewFromInt(int64(len(symbols)))).RoundDown(2)

	out := make(map[string]decimal.Decimal, len(symbols))
	allocated := decimal.Zero
	for _, sym := range symbols {
		out[sym] = share
		allocated = allocated.Add(share)
	}
	out[symbols[0]] = out[symbols[0]].Add(target.Sub(allocated))
	return out
}
