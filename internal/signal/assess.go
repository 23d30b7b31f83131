package signal

import (
	"errors"
	"fmt"
	"sort"

	"capital-allocator/internal/breaker"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
	"capital-allocator/internal/meanrev"
	"capital-allocator/internal/ranking"
	"capital-allocator/internal/regime"
)

// Assessment is the market read for one trade date, before any decision.
type Assessment struct {
	Snapshots  []features.Snapshot // eligible instruments, sorted by symbol
	Ineligible []string

	States      map[string]meanrev.State
	Pressure    meanrev.Pressure
	Opportunity meanrev.Opportunity

	Regime     float64
	Thresholds regime.Thresholds
	Label      string
	Transition string
	Risk       regime.RiskBreakdown

	Ranked  []ranking.Ranked
	Breaker breaker.State
}

// Assess computes features for every universe instrument and derives the
// regime, risk, mean-reversion and pressure reads from the eligible ones.
// Instruments with too little history are listed in Ineligible.
func Assess(in Input) (Assessment, error) {
	p := in.Version.Params
	var a Assessment

	for _, sym := range p.Universe.Assets {
		h, ok := in.Histories[sym]
		if !ok {
			a.Ineligible = append(a.Ineligible, sym)
			continue
		}
		snap, err := features.Compute(h, p.Features, p.Universe.MinDataDays)
		if errors.Is(err, features.ErrInsufficientData) {
			a.Ineligible = append(a.Ineligible, sym)
			continue
		}
		if err != nil {
			return Assessment{}, fmt.Errorf("features %s: %w", sym, err)
		}
		a.Snapshots = append(a.Snapshots, snap)
	}
	sort.Slice(a.Snapshots, func(i, j int) bool { return a.Snapshots[i].Symbol < a.Snapshots[j].Symbol })
	sort.Strings(a.Ineligible)

	if len(a.Snapshots) == 0 {
		a.Transition = domain.TransitionStable
		a.Breaker = breaker.State{Multiplier: 1}
		return a, nil
	}

	a.States = meanrev.ClassifyAll(a.Snapshots, p.MeanReversion)
	for i := range a.Snapshots {
		st := a.States[a.Snapshots[i].Symbol]
		a.Snapshots[i].MeanReversion = string(st.Kind)
		a.Snapshots[i].MeanReversionAdj = st.Bonus
	}
	a.Pressure = meanrev.DetectPressure(a.Snapshots, p.Pressure)

	a.Regime = regime.Score(a.Snapshots, p.Regime)
	a.Thresholds = regime.AdaptiveThresholds(regime.AverageVolatility(a.Snapshots), p.Regime)
	a.Label = a.Thresholds.Label(a.Regime)

	var yesterday *float64
	if in.Previous != nil {
		prev := in.Previous.RegimeScore
		yesterday = &prev
	}
	a.Transition = regime.Transition(a.Regime, yesterday, p.Regime)

	risk, err := regime.Risk(a.Snapshots, a.Pressure.RiskFloor, p.Risk)
	if err != nil {
		return Assessment{}, fmt.Errorf("risk: %w", err)
	}
	a.Risk = risk

	a.Opportunity = meanrev.Detect(a.States, a.Regime, p.Regime.StrongTrendThreshold)
	a.Ranked = ranking.Rank(a.Snapshots, a.States, p.Ranking)

	if in.Closes != nil {
		a.Breaker = breaker.Check(in.Trades, in.Closes, in.TradeDate, p.CircuitBreaker)
	} else {
		a.Breaker = breaker.State{Multiplier: 1}
	}
	return a, nil
}

// alignment scores how well action agrees with the instruments' mean-reversion
// states: buying oversold or selling overbought is positive.
func (a Assessment) alignment(action domain.Action) float64 {
	if len(a.Snapshots) == 0 || action == domain.ActionHold {
		return 0
	}
	sum := 0.0
	for _, st := range a.States {
		switch st.Kind {
		case meanrev.KindOversold:
			sum++
		case meanrev.KindMildOversold:
			sum += 0.5
		case meanrev.KindOverbought:
			sum--
		}
	}
	v := sum / float64(len(a.Snapshots))
	if action == domain.ActionSell {
		return -v
	}
	return v
}
