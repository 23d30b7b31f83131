package signal

import (
	"capital-allocator/internal/domain"
	"capital-allocator/internal/meanrev"
)

// Reasons recorded on signals.
const (
	ReasonNoEligibleAssets        = "no_eligible_assets"
	ReasonBearishRegime           = "bearish_regime"
	ReasonBearishNoHoldings       = "bearish_no_holdings"
	ReasonMeanReversionOversold   = "mean_reversion_oversold"
	ReasonMeanReversionOverbought = "mean_reversion_overbought"
	ReasonNeutralNoOpportunity    = "neutral_no_opportunity"
	ReasonExtremeRisk             = "extreme_risk"
	ReasonExtremeRiskNoHoldings   = "extreme_risk_no_holdings"
	ReasonBullishLowRisk          = "bullish_low_risk"
	ReasonBullishMediumRisk       = "bullish_medium_risk"
	ReasonBullishHighRisk         = "bullish_high_risk"
	ReasonBelowMinimum            = "below_minimum_allocation"
	ReasonNoPositiveScores        = "no_positive_scores"
)

// Decision is the branch the decision tree took, before sizing.
type Decision struct {
	Action       domain.Action
	SignalType   string
	Reason       string
	BaseFraction float64  // BUY: fraction of budget before sizing
	SellFraction float64  // SELL: fraction of holdings
	Restrict     []string // BUY: instruments allowed, nil for all ranked
}

// Decide walks the decision tree. Bearish takes priority over mean reversion;
// bullish BUYs are tiered by risk and never issued above the extreme ceiling.
func Decide(a Assessment, hasHoldings bool, p domain.Parameters) Decision {
	if len(a.Snapshots) == 0 {
		return hold(ReasonNoEligibleAssets)
	}

	switch a.Label {
	case domain.RegimeBearish:
		if !hasHoldings {
			return hold(ReasonBearishNoHoldings)
		}
		return Decision{
			Action:       domain.ActionSell,
			SignalType:   domain.SignalTypeDefensive,
			Reason:       ReasonBearishRegime,
			SellFraction: p.Decision.SellPercentage,
		}

	case domain.RegimeNeutral:
		switch {
		case a.Opportunity.Kind == meanrev.KindOversold && a.Risk.Score < p.MeanReversion.MaxRisk:
			return Decision{
				Action:       domain.ActionBuy,
				SignalType:   domain.SignalTypeMeanReversion,
				Reason:       ReasonMeanReversionOversold,
				BaseFraction: p.MeanReversion.Allocation,
				Restrict:     a.Opportunity.Assets,
			}
		case a.Opportunity.Kind == meanrev.KindOverbought && hasHoldings:
			return Decision{
				Action:       domain.ActionSell,
				SignalType:   domain.SignalTypeMeanReversion,
				Reason:       ReasonMeanReversionOverbought,
				SellFraction: p.Decision.AllocationNeutral,
			}
		}
		return hold(ReasonNeutralNoOpportunity)
	}

	if a.Risk.Score > p.Risk.ExtremeThreshold {
		if !hasHoldings {
			return hold(ReasonExtremeRiskNoHoldings)
		}
		return Decision{
			Action:       domain.ActionSell,
			SignalType:   domain.SignalTypeDefensive,
			Reason:       ReasonExtremeRisk,
			SellFraction: p.Decision.ExtremeRiskSellFraction,
		}
	}

	d := Decision{Action: domain.ActionBuy, SignalType: domain.SignalTypeMomentum}
	switch {
	case a.Risk.Score > p.Risk.HighThreshold:
		d.BaseFraction, d.Reason = p.Decision.AllocationHighRisk, ReasonBullishHighRisk
	case a.Risk.Score > p.Risk.MediumThreshold:
		d.BaseFraction, d.Reason = p.Decision.AllocationMediumRisk, ReasonBullishMediumRisk
	default:
		d.BaseFraction, d.Reason = p.Decision.AllocationLowRisk, ReasonBullishLowRisk
	}
	return d
}

func hold(reason string) Decision {
	return Decision{Action: domain.ActionHold, SignalType: domain.SignalTypeHold, Reason: reason}
}
