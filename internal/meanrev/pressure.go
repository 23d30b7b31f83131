package meanrev

import (
	"math"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
)

// Pressure is the downward pressure assessment for one date.
type Pressure struct {
	Severity   string
	PerAsset   map[string]string
	RiskFloor  float64 // minimum risk score implied by the severity
	Multiplier float64 // applied to BUY allocations
}

var severityLevels = []string{domain.PressureNone, domain.PressureModerate, domain.PressureSevere}

// DetectPressure checks three signals per asset: price below the short moving
// average, elevated volatility and a negative medium-horizon return. The
// agreeing fraction grades each asset; the universe severity is the rounded
// mean of asset grades.
func DetectPressure(snaps []features.Snapshot, p domain.PressureParams) Pressure {
	out := Pressure{
		Severity:   domain.PressureNone,
		PerAsset:   make(map[string]string, len(snaps)),
		Multiplier: 1,
	}
	if len(snaps) == 0 {
		return out
	}

	total := 0
	for _, s := range snaps {
		agree := 0
		if s.PriceVsShortMA < p.PriceVsSMAThreshold {
			agree++
		}
		if s.Volatility > p.HighVolatilityThreshold {
			agree++
		}
		if s.ReturnMedium < p.NegativeReturnThreshold {
			agree++
		}
		frac := float64(agree) / 3

		level := 0
		switch {
		case frac >= p.SevereAgreement:
			level = 2
		case frac >= p.ModerateAgreement:
			level = 1
		}
		out.PerAsset[s.Symbol] = severityLevels[level]
		total += level
	}

	level := int(math.Round(float64(total) / float64(len(snaps))))
	out.Severity = severityLevels[level]
	switch out.Severity {
	case domain.PressureSevere:
		out.RiskFloor, out.Multiplier = p.SevereRiskFloor, p.SevereMultiplier
	case domain.PressureModerate:
		out.RiskFloor, out.Multiplier = p.ModerateRiskFloor, p.ModerateMultiplier
	}
	return out
}
