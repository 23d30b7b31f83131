package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/features"
	"capital-allocator/internal/ledger"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/lookup"
	"capital-allocator/internal/observability"
	"capital-allocator/internal/publish"
	"capital-allocator/internal/runlock"
	"capital-allocator/internal/signal"
	"capital-allocator/internal/storage"
)

// DailyOptions selects the trade date and duplicate handling.
type DailyOptions struct {
	Date    time.Time
	Replace bool // swap a stored signal whose content differs
}

// DailyResult is the outcome of one daily run.
type DailyResult struct {
	Result
	Signal    *domain.DailySignal
	VersionID string
	Written   bool
	Replaced  bool
	Published bool
}

// DailyRunner generates, persists and publishes the signal for one date.
type DailyRunner struct {
	base
	engine    *signal.Engine
	publisher publish.Publisher
}

// NewDailyRunner creates a daily runner. A nil publisher discards signals.
func NewDailyRunner(opts Options, publisher publish.Publisher) *DailyRunner {
	if publisher == nil {
		publisher = publish.Nop{}
	}
	return &DailyRunner{
		base:      newBase(opts),
		engine:    signal.NewEngine(),
		publisher: publisher,
	}
}

// Run executes the daily path for opts.Date.
func (r *DailyRunner) Run(ctx context.Context, opts DailyOptions) (res *DailyResult) {
	res = &DailyResult{Result: Result{Status: StatusCompleted}}
	started := time.Now()
	date := domain.Day(opts.Date)
	log := r.log.With(logging.Date("trade_date", date))

	defer r.record(observability.PathDaily, &res.Result, started)
	defer guard(&res.Result)

	release, ok := r.lock(ctx, runlock.Key("daily", date.Format("2006-01-02")), &res.Result)
	if !ok {
		return res
	}
	defer release()

	version, warnings, err := r.versions.LoadActive(ctx, date)
	if err != nil {
		res.fail("load config version: %v", err)
		return res
	}
	res.VersionID = version.ID
	res.Warnings = warnings
	for _, w := range warnings {
		log.Warn("config warning", logging.String("version_id", version.ID), logging.String("warning", w))
	}
	p := version.Params

	in, err := r.buildInput(ctx, date, version)
	if err != nil {
		res.fail("load inputs: %v", err)
		return res
	}
	log.Info("inputs loaded",
		logging.Int("assets", len(in.Histories)),
		logging.Int("trades", len(in.Trades)),
		logging.String("budget", in.Budget.StringFixed(2)))

	sig, err := r.engine.Generate(ctx, in)
	if err != nil {
		res.fail("generate signal: %v", err)
		return res
	}
	res.Signal = sig
	for _, sym := range sig.Ineligible {
		res.problem("%s: fewer than %d sessions of history", sym, p.Universe.MinDataDays)
	}

	if !r.persist(ctx, sig, opts.Replace, res) {
		if res.Reason == ReasonSignalUnchanged {
			r.republish(ctx, res.Signal, res, log)
		}
		return res
	}
	if r.metrics != nil {
		r.metrics.RecordSignal(string(sig.Action), sig.SignalType, sig.RegimeScore, sig.RiskScore, sig.CircuitBreakerActive)
	}
	log.Info("signal written",
		logging.String("action", string(sig.Action)),
		logging.String("signal_type", sig.SignalType),
		logging.Float("regime_score", sig.RegimeScore),
		logging.Float("risk_score", sig.RiskScore),
		logging.Float("confidence", sig.Confidence),
		logging.Bool("circuit_breaker", sig.CircuitBreakerActive),
		logging.Bool("replaced", res.Replaced))

	r.publish(ctx, sig, res)
	res.finish()
	return res
}

func (r *DailyRunner) publish(ctx context.Context, sig *domain.DailySignal, res *DailyResult) {
	err := r.publisher.Publish(ctx, sig)
	if r.metrics != nil {
		r.metrics.RecordPublish(err)
	}
	if err != nil {
		res.problem("publish signal: %v", err)
		return
	}
	res.Published = true
}

// republish sends an unchanged stored signal again so a run whose publish
// failed can be retried. Consumers dedupe on trade date and content hash.
func (r *DailyRunner) republish(ctx context.Context, sig *domain.DailySignal, res *DailyResult, log *logging.Logger) {
	r.publish(ctx, sig, res)
	if !res.Published {
		res.Status = StatusCompletedWithProblems
		return
	}
	log.Info("signal republished", logging.String("content_hash", sig.ContentHash))
}

// buildInput gathers everything the engine reads. Nothing dated on or after
// date reaches the engine.
func (r *DailyRunner) buildInput(ctx context.Context, date time.Time, version *domain.ConfigVersion) (signal.Input, error) {
	p := version.Params
	prior := date.AddDate(0, 0, -1)

	bars, err := r.loadBars(ctx, p.Universe.Assets, date.AddDate(0, 0, -p.Universe.LookbackDays), prior)
	if err != nil {
		return signal.Input{}, err
	}
	histories := make(map[string]features.History, len(bars))
	for sym, list := range bars {
		histories[sym] = features.NewHistory(sym, list, date)
	}

	var trades []*domain.Trade
	err = r.timed("trades", "get_by_date_range", func() error {
		var err error
		trades, err = r.stores.Trades.GetByDateRange(ctx, time.Time{}, prior)
		return err
	})
	if err != nil {
		return signal.Input{}, err
	}

	var previous *domain.DailySignal
	err = r.timed("signals", "latest", func() error {
		var err error
		previous, err = r.stores.Signals.Latest(ctx, date)
		if errors.Is(err, storage.ErrNotFound) {
			previous, err = nil, nil
		}
		return err
	})
	if err != nil {
		return signal.Input{}, err
	}

	var history []*domain.DailySignal
	err = r.timed("signals", "get_range", func() error {
		var err error
		history, err = r.stores.Signals.GetRange(ctx, time.Time{}, prior)
		return err
	})
	if err != nil {
		return signal.Input{}, err
	}

	cash := CarriedCash(trades, len(history), p.Universe.DailyCapital, date)
	grant := decimal.NewFromFloat(p.Universe.DailyCapital)

	return signal.Input{
		TradeDate:   date,
		Version:     version,
		Histories:   histories,
		Previous:    previous,
		Trades:      trades,
		Closes:      lookup.NewCloses(flatten(bars)),
		Budget:      grant.Add(decimal.NewFromFloat(cash)).Round(2),
		Cash:        cash,
		GeneratedAt: r.now(),
	}, nil
}

// CarriedCash is the uninvested part of every grant issued before date: one
// grant per prior signal, less purchases, plus sale proceeds. Never negative.
func CarriedCash(trades []*domain.Trade, priorSignals int, grant float64, date time.Time) float64 {
	book := ledger.Build(trades, date)
	return max(0, book.Cash(grant*float64(priorSignals)))
}

// persist writes sig, handling an existing signal for the same date.
// It returns false when the run should stop.
func (r *DailyRunner) persist(ctx context.Context, sig *domain.DailySignal, replace bool, res *DailyResult) bool {
	var existing *domain.DailySignal
	err := r.timed("signals", "get_by_date", func() error {
		var err error
		existing, err = r.stores.Signals.GetByDate(ctx, sig.TradeDate)
		if errors.Is(err, storage.ErrNotFound) {
			existing, err = nil, nil
		}
		return err
	})
	if err != nil {
		res.fail("read existing signal: %v", err)
		return false
	}

	switch {
	case existing != nil && existing.ContentHash == sig.ContentHash:
		res.Status = StatusNothingToDo
		res.Reason = ReasonSignalUnchanged
		res.Signal = existing
		return false
	case existing != nil && !replace:
		res.Status = StatusCompletedWithProblems
		res.problem("signal for %s differs from the stored one (stored %s, new %s); rerun with replace to overwrite",
			sig.TradeDate.Format("2006-01-02"), existing.ContentHash, sig.ContentHash)
		return false
	case existing != nil:
		err = r.timed("signals", "replace", func() error { return r.stores.Signals.Replace(ctx, sig) })
		if err != nil {
			res.fail("replace signal: %v", err)
			return false
		}
		res.Replaced = true
	default:
		err = r.timed("signals", "insert", func() error { return r.stores.Signals.Insert(ctx, sig) })
		if errors.Is(err, storage.ErrDuplicateKey) {
			res.Status = StatusCompletedWithProblems
			res.problem("signal for %s was written concurrently", sig.TradeDate.Format("2006-01-02"))
			return false
		}
		if err != nil {
			res.fail("insert signal: %v", err)
			return false
		}
	}
	res.Written = true
	return true
}
