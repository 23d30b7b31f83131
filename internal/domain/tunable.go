package domain

import "sort"

// Tunable is a parameter the monthly tuner may adjust. Name is the dotted key
// used in TuningParams.Bounds and in change logs.
type Tunable struct {
	Name string
	Get  func(p *Parameters) float64
	Set  func(p *Parameters, v float64)
}

var tunables = []Tunable{
	{
		Name: "decision.allocation_low_risk",
		Get:  func(p *Parameters) float64 { return p.Decision.AllocationLowRisk },
		Set:  func(p *Parameters, v float64) { p.Decision.AllocationLowRisk = v },
	},
	{
		Name: "decision.allocation_medium_risk",
		Get:  func(p *Parameters) float64 { return p.Decision.AllocationMediumRisk },
		Set:  func(p *Parameters, v float64) { p.Decision.AllocationMediumRisk = v },
	},
	{
		Name: "decision.allocation_high_risk",
		Get:  func(p *Parameters) float64 { return p.Decision.AllocationHighRisk },
		Set:  func(p *Parameters, v float64) { p.Decision.AllocationHighRisk = v },
	},
	{
		Name: "decision.allocation_neutral",
		Get:  func(p *Parameters) float64 { return p.Decision.AllocationNeutral },
		Set:  func(p *Parameters, v float64) { p.Decision.AllocationNeutral = v },
	},
	{
		Name: "decision.sell_percentage",
		Get:  func(p *Parameters) float64 { return p.Decision.SellPercentage },
		Set:  func(p *Parameters, v float64) { p.Decision.SellPercentage = v },
	},
	{
		Name: "risk.medium_threshold",
		Get:  func(p *Parameters) float64 { return p.Risk.MediumThreshold },
		Set:  func(p *Parameters, v float64) { p.Risk.MediumThreshold = v },
	},
	{
		Name: "risk.high_threshold",
		Get:  func(p *Parameters) float64 { return p.Risk.HighThreshold },
		Set:  func(p *Parameters, v float64) { p.Risk.HighThreshold = v },
	},
	{
		Name: "regime.bullish_threshold",
		Get:  func(p *Parameters) float64 { return p.Regime.BullishThreshold },
		Set:  func(p *Parameters, v float64) { p.Regime.BullishThreshold = v },
	},
	{
		Name: "sizing.confidence_scaling",
		Get:  func(p *Parameters) float64 { return p.Sizing.ConfidenceScaling },
		Set:  func(p *Parameters, v float64) { p.Sizing.ConfidenceScaling = v },
	},
	{
		Name: "sizing.min_allocation_confidence_gate",
		Get:  func(p *Parameters) float64 { return p.Sizing.MinAllocationConfidenceGate },
		Set:  func(p *Parameters, v float64) { p.Sizing.MinAllocationConfidenceGate = v },
	},
	{
		Name: "mean_reversion.rsi_oversold",
		Get:  func(p *Parameters) float64 { return p.MeanReversion.RSIOversold },
		Set:  func(p *Parameters, v float64) { p.MeanReversion.RSIOversold = v },
	},
	{
		Name: "mean_reversion.rsi_overbought",
		Get:  func(p *Parameters) float64 { return p.MeanReversion.RSIOverbought },
		Set:  func(p *Parameters, v float64) { p.MeanReversion.RSIOverbought = v },
	},
	{
		Name: "mean_reversion.bb_oversold",
		Get:  func(p *Parameters) float64 { return p.MeanReversion.BBOversold },
		Set:  func(p *Parameters, v float64) { p.MeanReversion.BBOversold = v },
	},
	{
		Name: "mean_reversion.allocation",
		Get:  func(p *Parameters) float64 { return p.MeanReversion.Allocation },
		Set:  func(p *Parameters, v float64) { p.MeanReversion.Allocation = v },
	},
}

// Tunables returns the registry of tunable parameters in a fixed order.
func Tunables() []Tunable {
	out := make([]Tunable, len(tunables))
	copy(out, tunables)
	return out
}

// LookupTunable returns the tunable with the given name.
func LookupTunable(name string) (Tunable, bool) {
	for _, t := range tunables {
		if t.Name == name {
			return t, true
		}
	}
	return Tunable{}, false
}

// TunableNames returns registry names sorted alphabetically.
func TunableNames() []string {
	names := make([]string, 0, len(tunables))
	for _, t := range tunables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

func bound(min, max, step float64) Bound {
	return Bound{Min: &min, Max: &max, Step: step}
}

// DefaultBounds returns min/max/step for every registered tunable.
func DefaultBounds() map[string]Bound {
	return map[string]Bound{
		"decision.allocation_low_risk":          bound(0.5, 1.0, 0.05),
		"decision.allocation_medium_risk":       bound(0.3, 0.8, 0.05),
		"decision.allocation_high_risk":         bound(0.1, 0.5, 0.05),
		"decision.allocation_neutral":           bound(0.05, 0.4, 0.05),
		"decision.sell_percentage":              bound(0.3, 0.9, 0.05),
		"risk.medium_threshold":                 bound(25, 55, 2.5),
		"risk.high_threshold":                   bound(55, 85, 2.5),
		"regime.bullish_threshold":              bound(0.1, 0.5, 0.05),
		"sizing.confidence_scaling":             bound(0.2, 0.8, 0.05),
		"sizing.min_allocation_confidence_gate": bound(0.1, 0.6, 0.05),
		"mean_reversion.rsi_oversold":           bound(20, 40, 2),
		"mean_reversion.rsi_overbought":         bound(60, 80, 2),
		"mean_reversion.bb_oversold":            bound(-0.9, -0.2, 0.05),
		"mean_reversion.allocation":             bound(0.1, 0.6, 0.05),
	}
}
