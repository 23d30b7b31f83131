package metrics

import (
	"sort"
	"time"

	"capital-allocator/internal/domain"
)

// Grouping dimensions.
const (
	DimensionOverall    = "overall"
	DimensionCondition  = "market_condition"
	DimensionConfidence = "confidence_bucket"
	DimensionSignalType = "signal_type"
)

// DayLabel describes one signal day that could have produced a trade.
// Participation divides distinct trade days by the days carrying the same label.
type DayLabel struct {
	Date       time.Time
	Condition  string
	Bucket     string
	SignalType string
}

// GroupStats summarizes the evaluations sharing one label.
type GroupStats struct {
	Dimension string `json:"dimension"`
	Label     string `json:"label"`

	Count        int     `json:"count"`
	Wins         int     `json:"wins"`
	WinRatePct   float64 `json:"win_rate_pct"`
	MeanScore    float64 `json:"mean_score"`
	MeanPnL      float64 `json:"mean_pnl"`
	TotalPnL     float64 `json:"total_pnl"`
	MeanDrawdown float64 `json:"mean_drawdown_contribution"`

	BestHorizon map[string]int `json:"best_horizon"`
	BuyCount    int            `json:"buy_count"`
	SellCount   int            `json:"sell_count"`
	HoldCount   int            `json:"hold_count"`

	TradeDays     int     `json:"trade_days"`
	EligibleDays  int     `json:"eligible_days"`
	Participation float64 `json:"participation"`

	Aggressive   bool `json:"should_be_more_aggressive"`
	Conservative bool `json:"should_be_more_conservative"`
}

// Breakdown is the aggregator output.
type Breakdown struct {
	Overall           GroupStats            `json:"overall"`
	ByCondition       map[string]GroupStats `json:"by_condition"`
	ByBucket          map[string]GroupStats `json:"by_confidence_bucket"`
	BySignalType      map[string]GroupStats `json:"by_signal_type"`
	ShouldHaveAvoided int                   `json:"should_have_avoided"`
}

// Condition returns the stats for a market condition label, zero-valued
// when no evaluation carried it.
func (b Breakdown) Condition(label string) GroupStats {
	return lookup(b.ByCondition, DimensionCondition, label)
}

// Bucket returns the stats for a confidence bucket.
func (b Breakdown) Bucket(label string) GroupStats {
	return lookup(b.ByBucket, DimensionConfidence, label)
}

// SignalType returns the stats for a signal type.
func (b Breakdown) SignalType(label string) GroupStats {
	return lookup(b.BySignalType, DimensionSignalType, label)
}

func lookup(m map[string]GroupStats, dim, label string) GroupStats {
	if g, ok := m[label]; ok {
		return g
	}
	return GroupStats{Dimension: dim, Label: label, BestHorizon: map[string]int{}}
}

// Sorted returns the groups of m ordered by label.
func Sorted(m map[string]GroupStats) []GroupStats {
	out := make([]GroupStats, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Aggregate groups evaluations by market condition, confidence bucket and
// signal type. days lists the signal days of the same window; without them
// participation is 0 and the aggressive flag never fires.
func Aggregate(evals []domain.TradeEvaluation, days []DayLabel, p domain.TuningParams) Breakdown {
	b := Breakdown{
		ByCondition:  make(map[string]GroupStats),
		ByBucket:     make(map[string]GroupStats),
		BySignalType: make(map[string]GroupStats),
	}

	byCondition := make(map[string][]domain.TradeEvaluation)
	byBucket := make(map[string][]domain.TradeEvaluation)
	byType := make(map[string][]domain.TradeEvaluation)
	for _, e := range evals {
		byCondition[e.MarketCondition] = append(byCondition[e.MarketCondition], e)
		byBucket[e.ConfidenceBucket] = append(byBucket[e.ConfidenceBucket], e)
		byType[e.SignalType] = append(byType[e.SignalType], e)
		if e.ShouldHaveAvoided {
			b.ShouldHaveAvoided++
		}
	}

	condDays := make(map[string]int)
	bucketDays := make(map[string]int)
	typeDays := make(map[string]int)
	seen := make(map[time.Time]bool)
	for _, d := range days {
		day := domain.Day(d.Date)
		if seen[day] {
			continue
		}
		seen[day] = true
		condDays[d.Condition]++
		bucketDays[d.Bucket]++
		typeDays[d.SignalType]++
	}

	b.Overall = summarize(DimensionOverall, DimensionOverall, evals, len(seen), p)
	for label, group := range byCondition {
		b.ByCondition[label] = summarize(DimensionCondition, label, group, condDays[label], p)
	}
	for label, group := range byBucket {
		b.ByBucket[label] = summarize(DimensionConfidence, label, group, bucketDays[label], p)
	}
	for label, group := range byType {
		b.BySignalType[label] = summarize(DimensionSignalType, label, group, typeDays[label], p)
	}
	return b
}

func summarize(dim, label string, evals []domain.TradeEvaluation, eligibleDays int, p domain.TuningParams) GroupStats {
	g := GroupStats{
		Dimension:    dim,
		Label:        label,
		Count:        len(evals),
		EligibleDays: eligibleDays,
		BestHorizon:  map[string]int{},
	}
	if len(evals) == 0 {
		return g
	}

	var scores, dds []float64
	tradeDays := make(map[time.Time]bool)
	for _, e := range evals {
		if e.WasProfitable {
			g.Wins++
		}
		scores = append(scores, e.Score)
		dds = append(dds, e.DrawdownContribution)
		g.TotalPnL += e.PnL
		g.BestHorizon[e.BestHorizon]++
		tradeDays[domain.Day(e.TradeDate)] = true

		switch e.Action {
		case domain.ActionBuy:
			g.BuyCount++
		case domain.ActionSell:
			g.SellCount++
		default:
			g.HoldCount++
		}
	}

	g.WinRatePct = WinRatePct(g.Wins, g.Count)
	g.MeanScore = Mean(scores)
	g.MeanDrawdown = Mean(dds)
	g.MeanPnL = g.TotalPnL / float64(g.Count)
	g.TradeDays = len(tradeDays)
	if eligibleDays > 0 {
		g.Participation = Clamp(float64(g.TradeDays)/float64(eligibleDays), 0, 1)
	}

	g.Aggressive = eligibleDays > 0 &&
		g.WinRatePct > p.AggressiveWinRate &&
		g.Participation < p.AggressiveParticipation &&
		g.MeanScore > p.AggressiveScore
	g.Conservative = g.WinRatePct < p.ConservativeWinRate ||
		g.MeanDrawdown > p.ConservativeDrawdown ||
		g.MeanScore < p.ConservativeScore
	return g
}
