// Package ranking scores instruments against each other and splits a budget
// across the strongest of them.
package ranking

import (
	"math"
	"sort"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
	"capital-allocator/internal/meanrev"
)

// Ranked is one instrument's composite score.
type Ranked struct {
	Symbol string
	Score  float64
}

// Rank computes the composite score for each snapshot and orders the result
// by score descending, then symbol ascending.
func Rank(snaps []features.Snapshot, states map[string]meanrev.State, p domain.RankingParams) []Ranked {
	out := make([]Ranked, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, Ranked{Symbol: s.Symbol, Score: Composite(s, states[s.Symbol], p)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Composite scores a single instrument.
func Composite(s features.Snapshot, st meanrev.State, p domain.RankingParams) float64 {
	momentum := s.ReturnLong / math.Max(s.Volatility, p.MinVolatility)

	trend := p.TrendMixedMultiplier
	if sameSign(s.ReturnShort, s.ReturnMedium, s.ReturnLong) {
		trend = p.TrendAlignedMultiplier
	}

	priceMomentum := (s.PriceVsShortMA + s.PriceVsLongMA) / 2

	return momentum*p.MomentumWeight*trend + priceMomentum*p.PriceMomentumWeight + st.Bonus
}

func sameSign(vals ...float64) bool {
	pos, neg := true, true
	for _, v := range vals {
		pos = pos && v > 0
		neg = neg && v < 0
	}
	return pos || neg
}

// Scores returns ranked scores keyed by symbol.
func Scores(ranked []Ranked) map[string]float64 {
	out := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		out[r.Symbol] = r.Score
	}
	return out
}

// Filter keeps ranked entries whose symbol is in keep, preserving order.
func Filter(ranked []Ranked, keep []string) []Ranked {
	set := make(map[string]struct{}, len(keep))
	for _, s := range keep {
		set[s] = struct{}{}
	}
	var out []Ranked
	for _, r := range ranked {
		if _, ok := set[r.Symbol]; ok {
			out = append(out, r)
		}
	}
	return out
}
