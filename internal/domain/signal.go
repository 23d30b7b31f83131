package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the daily decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal type labels. Momentum and mean reversion are the two BUY rationales;
// defensive covers de-risking sells.
const (
	SignalTypeMomentum      = "momentum"
	SignalTypeMeanReversion = "mean_reversion"
	SignalTypeDefensive     = "defensive"
	SignalTypeHold          = "hold"
	SignalTypeUnknown       = "unknown"
)

// Regime labels.
const (
	RegimeBullish = "bullish"
	RegimeNeutral = "neutral"
	RegimeBearish = "bearish"
)

// Regime transition labels.
const (
	TransitionTurningBullish  = "turning_bullish"
	TransitionTurningBearish  = "turning_bearish"
	TransitionGainingMomentum = "gaining_momentum"
	TransitionLosingMomentum  = "losing_momentum"
	TransitionStable          = "stable"
)

// Confidence buckets.
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceUnknown = "unknown"
)

// Downward pressure severities.
const (
	PressureNone     = "none"
	PressureModerate = "moderate"
	PressureSevere   = "severe"
)

// FeatureSnapshot holds per-instrument features as of an evaluation date.
// Derived from price history, never persisted on its own.
type FeatureSnapshot struct {
	Symbol string    `json:"symbol"`
	AsOf   time.Time `json:"as_of"`
	Close  float64   `json:"close"`

	ReturnShort  float64 `json:"return_short"`  // 5 sessions by default
	ReturnMedium float64 `json:"return_medium"` // 20 sessions
	ReturnLong   float64 `json:"return_long"`   // 60 sessions

	Volatility       float64 `json:"volatility"`        // trailing window
	RecentVolatility float64 `json:"recent_volatility"` // short window

	ShortMA          float64 `json:"short_ma"`
	LongMA           float64 `json:"long_ma"`
	PriceVsShortMA   float64 `json:"price_vs_short_ma"`
	PriceVsLongMA    float64 `json:"price_vs_long_ma"`
	RSI              float64 `json:"rsi"`
	BollingerPos     float64 `json:"bollinger_position"`
	BollingerUpper   float64 `json:"bollinger_upper"`
	BollingerLower   float64 `json:"bollinger_lower"`
	BollingerMiddle  float64 `json:"bollinger_middle"`
	MeanReversion    string  `json:"mean_reversion"`
	MeanReversionAdj float64 `json:"mean_reversion_adj"`
}

// DailySignal is the single decision for one trade date.
// Corresponds to daily_signals table. Immutable once written; a regeneration
// for the same date is a logical replace.
type DailySignal struct {
	ID        string    `json:"id"` // deterministic hash of trade date
	TradeDate time.Time `json:"trade_date"`
	Action    Action    `json:"action"`

	RegimeScore      float64 `json:"regime_score"` // [-1, 1]
	RiskScore        float64 `json:"risk_score"`   // [0, 100]
	Confidence       float64 `json:"confidence"`   // [0, 1]
	ConfidenceBucket string  `json:"confidence_bucket"`
	RegimeLabel      string  `json:"regime_label"`
	Transition       string  `json:"transition"`
	SignalType       string  `json:"signal_type"`
	Reason           string  `json:"reason"`

	AdaptiveBullish float64 `json:"adaptive_bullish"`
	AdaptiveBearish float64 `json:"adaptive_bearish"`
	Pressure        string  `json:"pressure"`

	SellFraction float64                    `json:"sell_fraction"` // SELL only, fraction of holdings
	Budget       decimal.Decimal            `json:"budget"`        // grant + carried cash
	Allocations  map[string]decimal.Decimal `json:"allocations"`   // BUY only, dollars per symbol
	AssetScores  map[string]float64         `json:"asset_scores"`

	CircuitBreakerActive   bool    `json:"circuit_breaker_active"`
	CircuitBreakerDrawdown float64 `json:"circuit_breaker_drawdown"`

	Features   map[string]FeatureSnapshot `json:"features"`
	Ineligible []string                   `json:"ineligible,omitempty"`

	ConfigVersionID string    `json:"config_version_id"`
	ContentHash     string    `json:"content_hash"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// TotalAllocated sums BUY allocations.
func (s *DailySignal) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, amt := range s.Allocations {
		total = total.Add(amt)
	}
	return total
}

// Metadata returns the fields carried onto trades executed from this signal.
func (s *DailySignal) Metadata() SignalMetadata {
	return SignalMetadata{
		Action:           s.Action,
		RegimeScore:      s.RegimeScore,
		RiskScore:        s.RiskScore,
		Confidence:       s.Confidence,
		ConfidenceBucket: s.ConfidenceBucket,
		SignalType:       s.SignalType,
	}
}
