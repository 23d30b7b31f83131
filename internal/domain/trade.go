package domain

import "time"

// Trade is a realized fill reported by the execution collaborator.
// Corresponds to trades table. Read-only to this module.
type Trade struct {
	ID        string
	SignalID  string // originating daily signal
	TradeDate time.Time
	Symbol    string
	Action    Action // BUY or SELL
	Quantity  float64
	Price     float64
	Amount    float64 // quantity * price

	Signal SignalMetadata // originating signal's recorded metadata
}

// SignalMetadata is the subset of a daily signal recorded against its trades.
type SignalMetadata struct {
	Action           Action
	RegimeScore      float64
	RiskScore        float64
	Confidence       float64
	ConfidenceBucket string
	SignalType       string
}

// SignedQuantity returns quantity with SELL negative.
func (t *Trade) SignedQuantity() float64 {
	if t.Action == ActionSell {
		return -t.Quantity
	}
	return t.Quantity
}
