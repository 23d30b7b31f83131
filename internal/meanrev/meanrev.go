// Package meanrev detects oversold/overbought instruments and graded
// downward pressure across the universe.
package meanrev

import (
	"math"
	"sort"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
)

// Kind is a mean-reversion classification.
type Kind string

const (
	KindNone         Kind = "none"
	KindOversold     Kind = "oversold"
	KindMildOversold Kind = "mild_oversold"
	KindOverbought   Kind = "overbought"
)

// State is an instrument's mean-reversion classification with its signed
// ranking adjustment.
type State struct {
	Kind  Kind
	Bonus float64
}

// Classify requires RSI and band position to agree. Strong oversold wins over
// overbought; mild oversold is checked last.
func Classify(s features.Snapshot, p domain.MeanReversionParams) State {
	switch {
	case s.RSI < p.RSIOversold && s.BollingerPos < p.BBOversold:
		return State{Kind: KindOversold, Bonus: p.OversoldBonus}
	case s.RSI > p.RSIOverbought && s.BollingerPos > p.BBOverbought:
		return State{Kind: KindOverbought, Bonus: p.OverboughtPenalty}
	case s.RSI < p.RSIMildOversold && s.BollingerPos < p.BBMildOversold:
		return State{Kind: KindMildOversold, Bonus: p.MildOversoldBonus}
	}
	return State{Kind: KindNone}
}

// ClassifyAll classifies each snapshot, keyed by symbol.
func ClassifyAll(snaps []features.Snapshot, p domain.MeanReversionParams) map[string]State {
	out := make(map[string]State, len(snaps))
	for _, s := range snaps {
		out[s.Symbol] = Classify(s, p)
	}
	return out
}

// Opportunity is a universe-level mean-reversion setup.
type Opportunity struct {
	Kind   Kind     // KindOversold, KindOverbought or KindNone
	Assets []string // sorted
}

// Detect finds an opportunity when the regime is not strongly trending.
// Oversold assets take precedence over overbought ones.
func Detect(states map[string]State, regimeScore, strongTrend float64) Opportunity {
	if math.Abs(regimeScore) > strongTrend {
		return Opportunity{Kind: KindNone}
	}

	var oversold, overbought []string
	for sym, st := range states {
		switch st.Kind {
		case KindOversold:
			oversold = append(oversold, sym)
		case KindOverbought:
			overbought = append(overbought, sym)
		}
	}
	sort.Strings(oversold)
	sort.Strings(overbought)

	switch {
	case len(oversold) > 0:
		return Opportunity{Kind: KindOversold, Assets: oversold}
	case len(overbought) > 0:
		return Opportunity{Kind: KindOverbought, Assets: overbought}
	}
	return Opportunity{Kind: KindNone}
}
