package domain

import "time"

// Market condition labels.
const (
	ConditionMomentum = "momentum"
	ConditionChoppy   = "choppy"
	ConditionMixed    = "mixed"
	ConditionUnknown  = "unknown"
)

// Horizon labels.
const (
	HorizonShort  = "short"
	HorizonMedium = "medium"
	HorizonLong   = "long"
)

// TradeEvaluation is the tuning-time score of one historical trade.
// Recomputed every tuning run; only persisted inside the tuning report.
type TradeEvaluation struct {
	TradeID   string    `json:"trade_id"`
	TradeDate time.Time `json:"trade_date"`
	Symbol    string    `json:"symbol"`
	Action    Action    `json:"action"`
	Amount    float64   `json:"amount"`

	Regime          string `json:"regime"`
	MarketCondition string `json:"market_condition"`

	PnLShort    float64 `json:"pnl_short"`
	PnLMedium   float64 `json:"pnl_medium"`
	PnLLong     float64 `json:"pnl_long"`
	BestHorizon string  `json:"best_horizon"`
	PnL         float64 `json:"pnl"` // at best horizon

	WasProfitable        bool    `json:"was_profitable"`
	DrawdownContribution float64 `json:"drawdown_contribution"` // 0..100
	SharpeImpact         float64 `json:"sharpe_impact"`

	Confidence       float64 `json:"confidence"`
	ConfidenceBucket string  `json:"confidence_bucket"`
	SignalType       string  `json:"signal_type"`

	Score             float64 `json:"score"` // [-1, 1]
	ShouldHaveAvoided bool    `json:"should_have_avoided"`
}

// HorizonPnL returns P&L by horizon label.
func (e *TradeEvaluation) HorizonPnL() map[string]float64 {
	return map[string]float64{
		HorizonShort:  e.PnLShort,
		HorizonMedium: e.PnLMedium,
		HorizonLong:   e.PnLLong,
	}
}
