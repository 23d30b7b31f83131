package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"capital-allocator/internal/configversion"
	"capital-allocator/internal/decision"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/evaluation"
	"capital-allocator/internal/ledger"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/lookup"
	"capital-allocator/internal/metrics"
	"capital-allocator/internal/observability"
	"capital-allocator/internal/pipeline"
	"capital-allocator/internal/reporting"
	"capital-allocator/internal/runlock"
	"capital-allocator/internal/tuning"
)

// CreatedByTuner is recorded on versions published by the tuning path.
const CreatedByTuner = "tuner"

// TuningOptions controls one monthly run.
type TuningOptions struct {
	Date             time.Time
	AllowUnvalidated bool // publish a rejected candidate, noted in the version
	DryRun           bool // evaluate and report, never publish
}

// TuningResult is the outcome of one monthly run.
type TuningResult struct {
	Result
	Report     *reporting.Report
	Version    *domain.ConfigVersion // published version, if any
	MDPath     string
	JSONPath   string
	Changes    []tuning.Change
	Validation *decision.Result
}

// TuningRunner evaluates the trailing window and publishes the next
// month's configuration version.
type TuningRunner struct {
	base
	tuner   *tuning.Tuner
	checker *pipeline.SufficiencyChecker
	reports *reporting.Generator // nil skips report files
}

// NewTuningRunner creates a tuning runner. A nil tuner uses the default rules.
func NewTuningRunner(opts Options, tuner *tuning.Tuner, reports *reporting.Generator) *TuningRunner {
	if tuner == nil {
		tuner = tuning.NewTuner()
	}
	b := newBase(opts)
	return &TuningRunner{
		base:    b,
		tuner:   tuner,
		checker: pipeline.NewSufficiencyChecker(b.stores.Prices, b.stores.Trades, b.stores.Signals),
		reports: reports,
	}
}

// Window returns the evaluation window of a run on runDate: the trailing
// lookbackMonths ending the day before runDate.
func Window(runDate time.Time, lookbackMonths int) (from, to time.Time) {
	runDate = domain.Day(runDate)
	return runDate.AddDate(0, -lookbackMonths, 0), runDate.AddDate(0, 0, -1)
}

// Run executes the monthly path for opts.Date.
func (r *TuningRunner) Run(ctx context.Context, opts TuningOptions) (res *TuningResult) {
	res = &TuningResult{Result: Result{Status: StatusCompleted}}
	started := time.Now()
	runDate := domain.Day(opts.Date)
	nextStart := configversion.NextStart(runDate)
	log := r.log.With(logging.Date("run_date", runDate))

	defer r.record(observability.PathTuning, &res.Result, started)
	defer guard(&res.Result)

	release, ok := r.lock(ctx, runlock.Key("tuning", nextStart.Format("2006-01")), &res.Result)
	if !ok {
		return res
	}
	defer release()

	active, warnings, err := r.versions.LoadActive(ctx, runDate)
	if err != nil {
		res.fail("load config version: %v", err)
		return res
	}
	res.Warnings = warnings
	p := active.Params

	if !opts.DryRun {
		if v, _, err := r.versions.LoadActive(ctx, nextStart); err == nil && domain.Day(v.StartDate).Equal(nextStart) {
			res.Status = StatusNothingToDo
			res.Reason = ReasonAlreadyPublished
			return res
		}
	}

	from, to := Window(runDate, p.Tuning.LookbackMonths)
	var report *reporting.Report
	if r.reports != nil {
		report = r.reports.New(runDate, from, to)
	} else {
		report = reporting.NewGenerator("").WithClock(r.now).New(runDate, from, to)
	}
	report.ActiveVersionID = active.ID
	report.DryRun = opts.DryRun
	report.AllowUnvalidated = opts.AllowUnvalidated
	res.Report = report
	defer r.writeReport(res, log)

	log.Info("tuning started",
		logging.String("active_version", active.ID),
		logging.Date("window_from", from),
		logging.Date("window_to", to))

	// Phase 1: data sufficiency
	suff, err := r.checker.Check(ctx, from, to, p)
	if err != nil {
		res.fail("sufficiency check: %v", err)
		return res
	}
	report.DataQuality = suff
	if !suff.EnoughTrades() {
		res.Status = StatusNothingToDo
		res.Reason = ReasonInsufficientHistory
		log.Info("insufficient history",
			logging.Int("trades", len(suff.Trades)),
			logging.Int("min_trades", p.Tuning.MinTrades))
		return res
	}
	for _, name := range suff.Failed() {
		res.problem("data check failed: %s", name)
	}

	// Phase 2: evaluation
	bars, err := r.loadBars(ctx, p.Universe.Assets, from.AddDate(0, 0, -p.Universe.LookbackDays), to)
	if err != nil {
		res.fail("load prices: %v", err)
		return res
	}
	allBars := flatten(bars)
	closes := lookup.NewCloses(allBars)

	var allTrades []*domain.Trade
	err = r.timed("trades", "get_by_date_range", func() error {
		var err error
		allTrades, err = r.stores.Trades.GetByDateRange(ctx, time.Time{}, to)
		return err
	})
	if err != nil {
		res.fail("load trades: %v", err)
		return res
	}

	var signals []*domain.DailySignal
	err = r.timed("signals", "get_range", func() error {
		var err error
		signals, err = r.stores.Signals.GetRange(ctx, from, to)
		return err
	})
	if err != nil {
		res.fail("load signals: %v", err)
		return res
	}

	curve := ledger.AccountCurve(allTrades, closes, closes.Sessions(from, to.AddDate(0, 0, 1)), p.Universe.DailyCapital)
	ev := evaluation.NewEvaluator(evaluation.NewForwardWindow(allBars), curve, p)
	evals := ev.EvaluateAll(suff.Trades)
	breakdown := metrics.Aggregate(evals, ev.LabelDays(signals), p.Tuning)
	portfolio := metrics.Portfolio(curve, p.Validation.RiskFreeRate, p.Validation.TradingDaysPerYear)

	report.Evaluations = evals
	report.Breakdown = breakdown
	report.Portfolio = portfolio
	log.Info("trades evaluated",
		logging.Int("trades", len(evals)),
		logging.Int("should_have_avoided", breakdown.ShouldHaveAvoided),
		logging.Float("sharpe", portfolio.Sharpe),
		logging.Float("max_drawdown_pct", portfolio.MaxDrawdownPct))

	// Phase 3: tuning
	tuned, err := r.tuner.Tune(tuning.Facts{Breakdown: breakdown, Portfolio: portfolio, Current: p})
	if err != nil {
		res.fail("tune: %v", err)
		return res
	}
	report.Tuning = &tuned
	res.Changes = tuned.Changes
	if r.metrics != nil {
		for _, c := range tuned.Changes {
			r.metrics.ParameterChanges.WithLabelValues(c.Rule).Inc()
		}
	}
	for _, c := range tuned.Changes {
		log.Info("parameter changed",
			logging.String("param", c.Param),
			logging.Float("old", c.Old),
			logging.Float("new", c.New),
			logging.String("rule", c.Rule))
	}
	if len(tuned.Changes) == 0 {
		res.Reason = ReasonNoChanges
		res.finish()
		return res
	}

	// Phase 4: out-of-sample validation
	validation, err := decision.NewValidator(opts.AllowUnvalidated).Validate(decision.Input{
		From:      from,
		To:        to,
		Curve:     curve,
		Trades:    suff.Trades,
		Signals:   signals,
		Bars:      allBars,
		Candidate: tuned.Params,
	})
	if err != nil {
		res.problem("validation: %v", err)
		res.Reason = ReasonRejected
		res.finish()
		return res
	}
	report.Validation = validation
	res.Validation = validation
	if r.metrics != nil {
		r.metrics.ValidationVerdicts.WithLabelValues(string(validation.Verdict)).Inc()
	}
	log.Info("candidate validated",
		logging.String("verdict", string(validation.Verdict)),
		logging.Bool("overridden", validation.Overridden),
		logging.Float("score", validation.Score))
	if !validation.Publishable() {
		res.problem("candidate rejected by validation (score %.2f < %.2f)", validation.Score, validation.PassingScore)
		res.Reason = ReasonRejected
		res.finish()
		return res
	}
	if validation.Overridden {
		res.problem("candidate failed validation (score %.2f < %.2f), published with allow-unvalidated",
			validation.Score, validation.PassingScore)
	}

	// Phase 5: publication
	if opts.DryRun {
		res.Reason = ReasonDryRun
		res.finish()
		return res
	}
	v, err := r.versions.Publish(ctx, tuned.Params, nextStart, CreatedByTuner, versionNotes(report.RunID, tuned, validation))
	if err != nil {
		res.fail("publish version: %v", err)
		return res
	}
	if r.metrics != nil {
		r.metrics.VersionsPublished.Inc()
	}
	res.Version = v
	report.PublishedVersionID = v.ID
	report.PublishedStart = &v.StartDate
	log.Info("version published",
		logging.String("version_id", v.ID),
		logging.Date("start_date", v.StartDate),
		logging.Int("changes", len(tuned.Changes)))

	res.finish()
	return res
}

func versionNotes(runID string, tuned tuning.Result, validation *decision.Result) string {
	rules := make([]string, 0, len(tuned.Changes))
	seen := make(map[string]bool)
	for _, c := range tuned.Changes {
		if !seen[c.Rule] {
			seen[c.Rule] = true
			rules = append(rules, c.Rule)
		}
	}
	notes := fmt.Sprintf("tuning run %s: %d changes (%s); validation %s",
		runID, len(tuned.Changes), strings.Join(rules, ", "), validation.Verdict)
	if validation.Overridden {
		notes += "; published without passing validation (allow-unvalidated)"
	}
	return notes
}

// writeReport fills the report status and writes it when a generator is set.
func (r *TuningRunner) writeReport(res *TuningResult, log *logging.Logger) {
	report := res.Report
	if report == nil {
		return
	}
	report.Status = string(res.Status)
	report.Reason = res.Reason
	report.Problems = append([]string(nil), res.Problems...)
	if r.reports == nil {
		reporting.Finalize(report)
		return
	}

	md, js, err := r.reports.Write(report)
	if err != nil {
		log.Error("write report failed", logging.Error(err))
		res.problem("write report: %v", err)
		if res.Status == StatusCompleted {
			res.Status = StatusCompletedWithProblems
		}
		return
	}
	res.MDPath, res.JSONPath = md, js
	log.Info("report written", logging.String("markdown", md), logging.String("json", js))
}
