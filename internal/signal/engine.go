// Package signal turns price history and holdings into one daily decision.
package signal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
	"capital-allocator/internal/idhash"
	"capital-allocator/internal/ledger"
	"capital-allocator/internal/lookup"
	"capital-allocator/internal/ranking"
	"capital-allocator/internal/regime"
	"capital-allocator/internal/sizing"
)

// Input is everything a signal depends on. Histories only contain bars
// strictly before TradeDate; Trades are the executed fills before TradeDate.
type Input struct {
	TradeDate time.Time
	Version   *domain.ConfigVersion
	Histories map[string]features.History
	Previous  *domain.DailySignal // latest signal before TradeDate, if any
	Trades    []*domain.Trade
	Closes    *lookup.Closes  // closes before TradeDate for marking the book
	Budget    decimal.Decimal // daily grant plus carried cash
	Cash      float64         // uninvested cash, for capital tiering

	GeneratedAt time.Time // stamped on the signal, excluded from its content hash
}

// Engine generates daily signals. It holds no state between calls.
type Engine struct{}

// NewEngine creates a signal engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Generate produces the signal for in.TradeDate. Equal inputs yield equal
// signals.
func (e *Engine) Generate(ctx context.Context, in Input) (*domain.DailySignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.Version == nil {
		return nil, errors.New("config version is required")
	}
	p := in.Version.Params
	date := domain.Day(in.TradeDate)
	in.TradeDate = date

	a, err := Assess(in)
	if err != nil {
		return nil, err
	}

	closes := in.Closes
	if closes == nil {
		closes = lookup.NewCloses(nil)
	}
	book := ledger.Build(in.Trades, date)
	d := Decide(a, book.HasHoldings(), p)

	conf := regime.Confidence(regime.ConfidenceInput{
		Regime:              a.Regime,
		Risk:                a.Risk.Score,
		Consistent:          regime.TrendConsistent(a.Snapshots, p.Confidence.ConsistencyThreshold),
		MeanReversionDriven: d.SignalType == domain.SignalTypeMeanReversion,
		MRAlignment:         a.alignment(d.Action),
	}, p.Confidence)
	if len(a.Snapshots) == 0 {
		conf = 0
	}

	sig := &domain.DailySignal{
		ID:                     idhash.ComputeSignalID(date),
		TradeDate:              date,
		RegimeScore:            a.Regime,
		RiskScore:              a.Risk.Score,
		Confidence:             conf,
		ConfidenceBucket:       regime.Bucket(conf, p.Confidence),
		RegimeLabel:            a.Label,
		Transition:             a.Transition,
		AdaptiveBullish:        a.Thresholds.Bullish,
		AdaptiveBearish:        a.Thresholds.Bearish,
		Pressure:               a.Pressure.Severity,
		Budget:                 in.Budget,
		AssetScores:            ranking.Scores(a.Ranked),
		CircuitBreakerActive:   a.Breaker.Triggered,
		CircuitBreakerDrawdown: a.Breaker.Drawdown,
		Features:               make(map[string]domain.FeatureSnapshot, len(a.Snapshots)),
		Ineligible:             a.Ineligible,
		ConfigVersionID:        in.Version.ID,
		GeneratedAt:            in.GeneratedAt,
	}
	if len(a.Snapshots) == 0 {
		sig.RegimeLabel = domain.RegimeNeutral
		sig.Pressure = domain.PressureNone
		sig.ConfidenceBucket = domain.ConfidenceUnknown
	}
	for _, s := range a.Snapshots {
		sig.Features[s.Symbol] = s
	}

	applyDecision(sig, d)

	if d.Action == domain.ActionBuy {
		outcomes := sizing.KellyOutcomes(in.Trades, closes, date, p.Sizing)
		capital := book.MarketValue(closes, date.AddDate(0, 0, -1)) + in.Cash
		sized := sizing.Size(sizing.Input{
			BaseFraction:       d.BaseFraction,
			Confidence:         conf,
			HalfKelly:          sizing.HalfKelly(outcomes, p.Sizing),
			Capital:            capital,
			PressureMultiplier: a.Pressure.Multiplier,
			BreakerMultiplier:  a.Breaker.Multiplier,
			Budget:             in.Budget,
		}, p.Sizing)

		switch {
		case sized.Hold:
			applyDecision(sig, hold(ReasonBelowMinimum))
		default:
			ranked := a.Ranked
			if d.Restrict != nil {
				ranked = ranking.Filter(ranked, d.Restrict)
			}
			alloc := ranking.Allocate(ranked, sized.Amount, p.Allocation)
			if alloc == nil && d.Restrict != nil {
				alloc = ranking.Even(d.Restrict, sized.Amount)
			}
			if alloc == nil {
				applyDecision(sig, hold(ReasonNoPositiveScores))
			} else {
				sig.Allocations = alloc
			}
		}
	}

	hash, err := idhash.ComputeContentHash(sig)
	if err != nil {
		return nil, fmt.Errorf("hash signal %s: %w", date.Format(time.DateOnly), err)
	}
	sig.ContentHash = hash
	return sig, nil
}

func applyDecision(sig *domain.DailySignal, d Decision) {
	sig.Action = d.Action
	sig.SignalType = d.SignalType
	sig.Reason = d.Reason
	sig.SellFraction = d.SellFraction
	sig.Allocations = nil
}
