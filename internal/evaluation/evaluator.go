package evaluation

import (
	"math"
	"sort"
	"time"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/metrics"
	"capital-allocator/internal/regime"
)

// Evaluator scores trades against forward prices and the account curve.
type Evaluator struct {
	fw    *ForwardWindow
	curve metrics.Curve
	p     domain.Parameters
}

// NewEvaluator creates an evaluator. curve is the account value series used
// for drawdown attribution; it may be empty.
func NewEvaluator(fw *ForwardWindow, curve metrics.Curve, p domain.Parameters) *Evaluator {
	return &Evaluator{fw: fw, curve: curve, p: p}
}

// EvaluateAll scores trades in date then id order.
func (e *Evaluator) EvaluateAll(trades []*domain.Trade) []domain.TradeEvaluation {
	sorted := append([]*domain.Trade(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].TradeDate.Equal(sorted[j].TradeDate) {
			return sorted[i].TradeDate.Before(sorted[j].TradeDate)
		}
		return sorted[i].ID < sorted[j].ID
	})

	out := make([]domain.TradeEvaluation, 0, len(sorted))
	for _, t := range sorted {
		out = append(out, e.Evaluate(t))
	}
	return out
}

// Evaluate scores one trade.
func (e *Evaluator) Evaluate(t *domain.Trade) domain.TradeEvaluation {
	ep := e.p.Evaluation
	date := domain.Day(t.TradeDate)

	ev := domain.TradeEvaluation{
		TradeID:          t.ID,
		TradeDate:        date,
		Symbol:           t.Symbol,
		Action:           t.Action,
		Amount:           t.Amount,
		Regime:           RegimeLabel(t.Signal.RegimeScore, ep),
		Confidence:       t.Signal.Confidence,
		ConfidenceBucket: domain.ConfidenceUnknown,
		SignalType:       t.Signal.SignalType,
	}
	if t.SignalID != "" {
		ev.ConfidenceBucket = regime.Bucket(t.Signal.Confidence, e.p.Confidence)
	}
	if ev.SignalType == "" {
		ev.SignalType = domain.SignalTypeUnknown
	}

	ev.MarketCondition = Classify(e.fw.Trailing(e.p.Universe.ReferenceAsset, date, ep.ConditionWindow), ep)

	forward := e.fw.After(t.Symbol, date, max(ep.ShortHorizon, ep.MediumHorizon, ep.LongHorizon))
	horizons := []struct {
		label string
		n     int
		pnl   *float64
	}{
		{domain.HorizonShort, ep.ShortHorizon, &ev.PnLShort},
		{domain.HorizonMedium, ep.MediumHorizon, &ev.PnLMedium},
		{domain.HorizonLong, ep.LongHorizon, &ev.PnLLong},
	}

	bestIdx := -1
	var bestConsistency float64
	for i, h := range horizons {
		window := head(forward, h.n)
		*h.pnl = horizonPnL(t, window)
		consistency := sharpeConsistency(*h.pnl, t.Price, window, h.n)

		if bestIdx < 0 || *h.pnl > *horizons[bestIdx].pnl ||
			(*h.pnl == *horizons[bestIdx].pnl && consistency > bestConsistency) {
			bestIdx, bestConsistency = i, consistency
		}
	}
	ev.BestHorizon = horizons[bestIdx].label
	ev.PnL = *horizons[bestIdx].pnl
	ev.WasProfitable = ev.PnL > 0

	ev.DrawdownContribution = e.drawdownContribution(date, ev.PnLShort)
	ev.SharpeImpact = e.sharpeImpact(ev)
	ev.Score = e.score(ev)
	ev.ShouldHaveAvoided = ev.DrawdownContribution > ep.ShouldAvoidDrawdown ||
		(ev.MarketCondition == domain.ConditionChoppy && ev.Action == domain.ActionBuy && !ev.WasProfitable) ||
		(ev.ConfidenceBucket == domain.ConfidenceLow && !ev.WasProfitable && ev.PnLShort < ep.ShouldAvoidLoss)

	return ev
}

// LabelDays labels each signal day with the same condition, bucket and type
// rules used for trades, so aggregation can measure participation.
func (e *Evaluator) LabelDays(signals []*domain.DailySignal) []metrics.DayLabel {
	ep := e.p.Evaluation
	out := make([]metrics.DayLabel, 0, len(signals))
	for _, s := range signals {
		date := domain.Day(s.TradeDate)
		l := metrics.DayLabel{
			Date:       date,
			Condition:  Classify(e.fw.Trailing(e.p.Universe.ReferenceAsset, date, ep.ConditionWindow), ep),
			Bucket:     regime.Bucket(s.Confidence, e.p.Confidence),
			SignalType: s.SignalType,
		}
		if l.SignalType == "" {
			l.SignalType = domain.SignalTypeUnknown
		}
		out = append(out, l)
	}
	return out
}

// horizonPnL marks the trade to the last close in window; an empty window
// means no future price and zero P&L.
func horizonPnL(t *domain.Trade, window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	future := window[len(window)-1]
	qty := math.Abs(t.Quantity)
	if t.Action == domain.ActionSell {
		return (t.Price - future) * qty
	}
	return (future - t.Price) * qty
}

// sharpeConsistency is pnl / (σ·√h) with σ the stddev of the window's session
// returns, starting from the fill price.
func sharpeConsistency(pnl, price float64, window []float64, h int) float64 {
	if len(window) == 0 || h <= 0 {
		return 0
	}
	series := append([]float64{price}, window...)
	sd := metrics.Stddev(metrics.Returns(series))
	if sd == 0 {
		return 0
	}
	return pnl / (sd * math.Sqrt(float64(h)))
}

// drawdownContribution compares the account's peak before the trade with its
// trough after, within the configured window, and attributes a losing
// short-horizon P&L proportionally. Returns 0..100.
func (e *Evaluator) drawdownContribution(date time.Time, pnl float64) float64 {
	if pnl >= 0 || len(e.curve) < 2 {
		return 0
	}
	ep := e.p.Evaluation

	idx := sort.Search(len(e.curve), func(i int) bool { return !e.curve[i].Date.Before(date) })
	if idx == 0 || idx >= len(e.curve) {
		return 0
	}
	start := idx - ep.DrawdownWindowBefore
	if start < 0 {
		start = 0
	}
	end := idx + ep.DrawdownWindowAfter
	if end > len(e.curve)-1 {
		end = len(e.curve) - 1
	}

	window := e.curve[start : end+1]
	index := window.Index()
	at := idx - start

	peakPos := 0
	for i := 0; i <= at; i++ {
		if index[i] > index[peakPos] {
			peakPos = i
		}
	}
	trough := index[at]
	for _, v := range index[at:] {
		trough = math.Min(trough, v)
	}

	peak := index[peakPos]
	if peak <= 0 || trough >= peak {
		return 0
	}
	lost := window[peakPos].Value * (peak - trough) / peak
	if lost <= 0 {
		return 0
	}
	return math.Min(100, math.Abs(pnl)/lost*100)
}

func (e *Evaluator) sharpeImpact(ev domain.TradeEvaluation) float64 {
	ep := e.p.Evaluation
	impact := 0.0
	switch {
	case ev.MarketCondition == domain.ConditionMomentum && ev.Action == domain.ActionBuy && ev.Regime == domain.RegimeBullish:
		impact = ep.MomentumAlignedBonus
	case ev.MarketCondition == domain.ConditionChoppy && ev.Action == domain.ActionHold:
		impact = ep.MomentumAlignedBonus * ep.HoldMultiplier
	case ev.MarketCondition == domain.ConditionChoppy && ev.Action == domain.ActionBuy:
		impact = ep.ChoppyPenalty
	}
	if ev.SignalType == domain.SignalTypeMeanReversion && ev.WasProfitable {
		impact += ep.MeanReversionBonus
	}
	return impact
}

func (e *Evaluator) score(ev domain.TradeEvaluation) float64 {
	ep := e.p.Evaluation
	s := 0.0

	if ev.WasProfitable {
		s += ep.ProfitableBonus
	} else {
		s += ep.UnprofitablePenalty
	}

	switch {
	case ev.SharpeImpact > 0:
		s += ep.SharpeBonus
	case ev.SharpeImpact < 0:
		s -= ep.SharpeBonus
	}

	if ev.DrawdownContribution < ep.LowDrawdownLevel {
		s += ep.LowDrawdownBonus
	}
	if ev.DrawdownContribution > ep.HighDrawdownLevel {
		s += ep.HighDrawdownPenalty
	}

	profitable := 0
	for _, pnl := range []float64{ev.PnLShort, ev.PnLMedium, ev.PnLLong} {
		if pnl > 0 {
			profitable++
		}
	}
	switch profitable {
	case 3:
		s += ep.AllHorizonsBonus
	case 2:
		s += ep.TwoHorizonsBonus
	}

	switch {
	case ev.MarketCondition == domain.ConditionMomentum && ev.Action == domain.ActionBuy && ev.WasProfitable:
		s += ep.MomentumAlignedBonus
	case ev.MarketCondition == domain.ConditionChoppy && ev.Action == domain.ActionBuy && !ev.WasProfitable:
		s += ep.ChoppyPenalty
	}

	if (ev.ConfidenceBucket == domain.ConfidenceHigh && ev.WasProfitable) ||
		(ev.ConfidenceBucket == domain.ConfidenceLow && !ev.WasProfitable) {
		s += ep.ConfidenceBonus
	}

	return metrics.Clamp(s, -1, 1)
}

func head(values []float64, n int) []float64 {
	if n < len(values) {
		return values[:n]
	}
	return values
}
