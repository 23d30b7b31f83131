package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"capital-allocator/internal/configversion"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/ledger"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/lookup"
	"capital-allocator/internal/metrics"
	"capital-allocator/internal/observability"
	"capital-allocator/internal/orchestrator"
	"capital-allocator/internal/reporting"
)

// Options selects the replayed range.
type Options struct {
	From             time.Time
	To               time.Time // inclusive
	Tune             bool      // run the monthly path before each new month
	AllowUnvalidated bool
}

// TuningRun records one monthly run inside a backtest.
type TuningRun struct {
	RunDate   time.Time           `json:"run_date"`
	Status    orchestrator.Status `json:"status"`
	Reason    string              `json:"reason,omitempty"`
	VersionID string              `json:"version_id,omitempty"`
	Changes   int                 `json:"changes"`
}

// Results summarizes a backtest.
type Results struct {
	From       time.Time              `json:"from"`
	To         time.Time              `json:"to"`
	Sessions   int                    `json:"sessions"`
	Signals    map[domain.Action]int  `json:"signals"`
	Trades     []*domain.Trade        `json:"-"`
	TradeCount int                    `json:"trade_count"`
	Tunings    []TuningRun            `json:"tunings,omitempty"`
	Problems   []string               `json:"problems,omitempty"`
	Portfolio  metrics.PortfolioStats `json:"portfolio"`
	FinalValue float64                `json:"final_value"`
	Curve      metrics.Curve          `json:"-"`
}

// Runner replays the daily path session by session and fills each fresh
// signal at that session's open.
type Runner struct {
	stores   orchestrator.Stores
	versions *configversion.Manager
	daily    *orchestrator.DailyRunner
	tuning   *orchestrator.TuningRunner
	log      *logging.Logger
	metrics  *observability.Metrics
	simNow   time.Time
}

// NewRunner creates a backtest runner over opts.Stores. The clock is replaced
// by the simulated session time. reports may be nil.
func NewRunner(opts orchestrator.Options, reports *reporting.Generator) *Runner {
	r := &Runner{
		stores:  opts.Stores,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if r.log == nil {
		r.log = logging.Nop()
	}
	// Nested runs are not counted as daily or tuning runs.
	opts.Metrics = nil
	opts.Clock = func() time.Time { return r.simNow }
	if reports != nil {
		reports = reports.WithClock(opts.Clock)
	}
	r.versions = configversion.NewManager(opts.Stores.Versions).WithClock(opts.Clock)
	r.daily = orchestrator.NewDailyRunner(opts, nil)
	r.tuning = orchestrator.NewTuningRunner(opts, nil, reports)
	return r
}

// Run replays every session in [From, To].
func (r *Runner) Run(ctx context.Context, opts Options) (*Results, error) {
	started := time.Now()
	from, to := domain.Day(opts.From), domain.Day(opts.To)
	if to.Before(from) {
		return nil, fmt.Errorf("backtest range %s..%s is empty", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	status := string(orchestrator.StatusFailed)
	defer func() {
		if r.metrics != nil {
			r.metrics.RecordRun(observability.PathBacktest, status, time.Since(started), time.Now().UTC())
		}
	}()

	active, _, err := r.versions.LoadActive(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("load config version: %w", err)
	}
	p := active.Params

	var bars []*domain.PriceBar
	for _, sym := range p.Universe.Assets {
		list, err := r.stores.Prices.GetRange(ctx, sym, from, to)
		if err != nil {
			return nil, fmt.Errorf("load prices for %s: %w", sym, err)
		}
		bars = append(bars, list...)
	}
	closes := lookup.NewCloses(bars)
	sessions := closes.Sessions(from, to.AddDate(0, 0, 1))
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no sessions between %s and %s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	trades, err := r.stores.Trades.GetByDateRange(ctx, time.Time{}, to)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	res := &Results{From: from, To: to, Signals: make(map[domain.Action]int)}
	for i, d := range sessions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.simNow = d.Add(6 * time.Hour)

		if opts.Tune && i > 0 && d.Month() != sessions[i-1].Month() {
			res.Tunings = append(res.Tunings, r.tune(ctx, d, opts.AllowUnvalidated))
		}

		daily := r.daily.Run(ctx, orchestrator.DailyOptions{Date: d})
		res.Sessions++
		if daily.Status == orchestrator.StatusFailed {
			res.Problems = append(res.Problems, fmt.Sprintf("%s: daily run failed: %v", d.Format(time.DateOnly), daily.Problems))
			continue
		}
		if !daily.Written || daily.Signal == nil {
			continue
		}
		sig := daily.Signal
		res.Signals[sig.Action]++

		fill := Execute(sig, ledger.Build(trades, d), closes)
		for _, sym := range fill.Skipped {
			res.Problems = append(res.Problems, fmt.Sprintf("%s: no open for %s", d.Format(time.DateOnly), sym))
		}
		if len(fill.Trades) == 0 {
			continue
		}
		if err := r.stores.Trades.InsertBulk(ctx, fill.Trades); err != nil {
			return nil, fmt.Errorf("insert trades for %s: %w", d.Format(time.DateOnly), err)
		}
		trades = append(trades, fill.Trades...)
		res.Trades = append(res.Trades, fill.Trades...)
		r.log.Debug("signal filled",
			logging.Date("trade_date", d),
			logging.String("action", string(sig.Action)),
			logging.Int("trades", len(fill.Trades)))
	}

	sort.SliceStable(res.Trades, func(i, j int) bool {
		if !res.Trades[i].TradeDate.Equal(res.Trades[j].TradeDate) {
			return res.Trades[i].TradeDate.Before(res.Trades[j].TradeDate)
		}
		return res.Trades[i].ID < res.Trades[j].ID
	})
	res.TradeCount = len(res.Trades)
	res.Curve = ledger.AccountCurve(trades, closes, sessions, p.Universe.DailyCapital)
	res.Portfolio = metrics.Portfolio(res.Curve, p.Validation.RiskFreeRate, p.Validation.TradingDaysPerYear)
	if n := len(res.Curve); n > 0 {
		res.FinalValue = res.Curve[n-1].Value
	}

	status = string(orchestrator.StatusCompleted)
	if len(res.Problems) > 0 {
		status = string(orchestrator.StatusCompletedWithProblems)
	}
	r.log.Info("backtest finished",
		logging.Date("from", from),
		logging.Date("to", to),
		logging.Int("sessions", res.Sessions),
		logging.Int("trades", res.TradeCount),
		logging.Int("tunings", len(res.Tunings)),
		logging.Float("final_value", res.FinalValue),
		logging.Float("sharpe", res.Portfolio.Sharpe))
	return res, nil
}

// tune runs the monthly path on the last calendar day of the month before
// d, so that a published version starts on the first of d's month.
func (r *Runner) tune(ctx context.Context, d time.Time, allowUnvalidated bool) TuningRun {
	runDate := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	out := r.tuning.Run(ctx, orchestrator.TuningOptions{Date: runDate, AllowUnvalidated: allowUnvalidated})
	run := TuningRun{RunDate: runDate, Status: out.Status, Reason: out.Reason, Changes: len(out.Changes)}
	if out.Version != nil {
		run.VersionID = out.Version.ID
	}
	return run
}
