package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capital-allocator/internal/configversion"
	"capital-allocator/internal/decision"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/publish"
	"capital-allocator/internal/reporting"
	"capital-allocator/internal/runlock"
	"capital-allocator/internal/storage/memory"
	"capital-allocator/internal/tuning"
)

var (
	tradeDate = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	seedStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	fixedNow  = time.Date(2024, 6, 10, 6, 0, 0, 0, time.UTC)
)

type testStores struct {
	prices   *memory.PriceStore
	trades   *memory.TradeStore
	signals  *memory.SignalStore
	versions *memory.ConfigVersionStore
}

func (s testStores) stores() Stores {
	return Stores{Prices: s.prices, Trades: s.trades, Signals: s.signals, Versions: s.versions}
}

// createTestStores seeds a year and a half of daily bars up to end and a
// bootstrap config version.
func createTestStores(t *testing.T, end time.Time) testStores {
	t.Helper()
	ctx := context.Background()
	s := testStores{
		prices:   memory.NewPriceStore(),
		trades:   memory.NewTradeStore(),
		signals:  memory.NewSignalStore(),
		versions: memory.NewConfigVersionStore(),
	}

	rates := map[string]float64{"SPY": 0.0008, "QQQ": 0.0006, "DIA": 0.0004}
	start := end.AddDate(0, -18, 0)
	for sym, r := range rates {
		var bars []*domain.PriceBar
		i := 0
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			c := 100 * math.Pow(1+r, float64(i)) * (1 + 0.01*math.Sin(float64(i)/5))
			bars = append(bars, &domain.PriceBar{Symbol: sym, Date: d, Open: c * 0.999, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1e6})
			i++
		}
		require.NoError(t, s.prices.InsertBulk(ctx, bars))
	}

	_, _, err := configversion.NewManager(s.versions).Bootstrap(ctx, domain.DefaultParameters(), seedStart, "seed")
	require.NoError(t, err)
	return s
}

func newDaily(s testStores, opts Options, pub publish.Publisher) *DailyRunner {
	opts.Stores = s.stores()
	opts.Clock = func() time.Time { return fixedNow }
	return NewDailyRunner(opts, pub)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, *domain.DailySignal) error {
	return errors.New("broker down")
}
func (failingPublisher) Close() error { return nil }

func TestDailyRunner_WritesAndPublishes(t *testing.T) {
	s := createTestStores(t, tradeDate)
	rec := &publish.Recorder{}

	res := newDaily(s, Options{}, rec).Run(context.Background(), DailyOptions{Date: tradeDate})

	require.Equal(t, StatusCompleted, res.Status, "problems: %v", res.Problems)
	assert.True(t, res.Written)
	assert.True(t, res.Published)
	require.NotNil(t, res.Signal)
	require.Len(t, rec.Messages, 1)
	assert.Equal(t, "2024-06-10", rec.Messages[0].TradeDate)

	stored, err := s.signals.GetByDate(context.Background(), tradeDate)
	require.NoError(t, err)
	assert.Equal(t, res.Signal.ContentHash, stored.ContentHash)
	assert.Equal(t, res.VersionID, stored.ConfigVersionID)
}

func TestDailyRunner_IdenticalRerunIsNothingToDo(t *testing.T) {
	s := createTestStores(t, tradeDate)
	rec := &publish.Recorder{}
	r := newDaily(s, Options{}, rec)

	first := r.Run(context.Background(), DailyOptions{Date: tradeDate})
	require.Equal(t, StatusCompleted, first.Status)

	second := r.Run(context.Background(), DailyOptions{Date: tradeDate})
	assert.Equal(t, StatusNothingToDo, second.Status)
	assert.Equal(t, ReasonSignalUnchanged, second.Reason)
	assert.False(t, second.Written)
	assert.True(t, second.Published)
	require.Len(t, rec.Messages, 2)
	assert.Equal(t, rec.Messages[0].ContentHash, rec.Messages[1].ContentHash)
}

func TestDailyRunner_RerunRetriesFailedPublish(t *testing.T) {
	ctx := context.Background()
	s := createTestStores(t, tradeDate)

	first := newDaily(s, Options{}, failingPublisher{}).Run(ctx, DailyOptions{Date: tradeDate})
	require.Equal(t, StatusCompletedWithProblems, first.Status)
	require.True(t, first.Written)
	require.False(t, first.Published)

	rec := &publish.Recorder{}
	rerun := newDaily(s, Options{}, rec).Run(ctx, DailyOptions{Date: tradeDate})
	assert.Equal(t, StatusNothingToDo, rerun.Status)
	assert.Equal(t, ReasonSignalUnchanged, rerun.Reason)
	assert.True(t, rerun.Published)
	require.Len(t, rec.Messages, 1)
	assert.Equal(t, "2024-06-10", rec.Messages[0].TradeDate)
	assert.Equal(t, first.Signal.ContentHash, rec.Messages[0].ContentHash)
}

func TestDailyRunner_RepublishFailureIsAProblem(t *testing.T) {
	ctx := context.Background()
	s := createTestStores(t, tradeDate)
	require.Equal(t, StatusCompleted, newDaily(s, Options{}, nil).Run(ctx, DailyOptions{Date: tradeDate}).Status)

	res := newDaily(s, Options{}, failingPublisher{}).Run(ctx, DailyOptions{Date: tradeDate})
	assert.Equal(t, StatusCompletedWithProblems, res.Status)
	assert.False(t, res.Published)
	assert.Contains(t, strings.Join(res.Problems, "\n"), "broker down")
}

func TestDailyRunner_DifferingSignal(t *testing.T) {
	ctx := context.Background()
	s := createTestStores(t, tradeDate)
	r := newDaily(s, Options{}, nil)

	require.Equal(t, StatusCompleted, r.Run(ctx, DailyOptions{Date: tradeDate}).Status)

	stale, err := s.signals.GetByDate(ctx, tradeDate)
	require.NoError(t, err)
	stale.ContentHash = "stale"
	stale.Reason = "older engine"
	require.NoError(t, s.signals.Replace(ctx, stale))

	res := r.Run(ctx, DailyOptions{Date: tradeDate})
	assert.Equal(t, StatusCompletedWithProblems, res.Status)
	assert.False(t, res.Written)
	stored, err := s.signals.GetByDate(ctx, tradeDate)
	require.NoError(t, err)
	assert.Equal(t, "stale", stored.ContentHash)

	res = r.Run(ctx, DailyOptions{Date: tradeDate, Replace: true})
	assert.Equal(t, StatusCompleted, res.Status)
	assert.True(t, res.Replaced)
	stored, err = s.signals.GetByDate(ctx, tradeDate)
	require.NoError(t, err)
	assert.Equal(t, res.Signal.ContentHash, stored.ContentHash)
}

func TestDailyRunner_NoConfigVersionFails(t *testing.T) {
	s := createTestStores(t, tradeDate)
	s.versions = memory.NewConfigVersionStore()

	res := newDaily(s, Options{}, nil).Run(context.Background(), DailyOptions{Date: tradeDate})
	assert.Equal(t, StatusFailed, res.Status)
	require.NotEmpty(t, res.Problems)
	assert.Contains(t, res.Problems[0], "no active")
}

func TestDailyRunner_LockHeld(t *testing.T) {
	s := createTestStores(t, tradeDate)
	locker := runlock.NewMemoryLocker()
	key := runlock.Key("daily", "2024-06-10")
	require.NoError(t, locker.Acquire(context.Background(), key, time.Hour))

	res := newDaily(s, Options{Locker: locker}, nil).Run(context.Background(), DailyOptions{Date: tradeDate})
	assert.Equal(t, StatusNothingToDo, res.Status)
	assert.Equal(t, ReasonLockHeld, res.Reason)
}

func TestDailyRunner_PublishFailureKeepsSignal(t *testing.T) {
	s := createTestStores(t, tradeDate)

	res := newDaily(s, Options{}, failingPublisher{}).Run(context.Background(), DailyOptions{Date: tradeDate})
	assert.Equal(t, StatusCompletedWithProblems, res.Status)
	assert.True(t, res.Written)
	assert.False(t, res.Published)
}

func TestDailyRunner_BudgetCarriesCash(t *testing.T) {
	ctx := context.Background()
	s := createTestStores(t, tradeDate)
	prev := tradeDate.AddDate(0, 0, -1)
	require.NoError(t, s.signals.Insert(ctx, &domain.DailySignal{ID: "prev", TradeDate: prev, Action: domain.ActionHold}))

	res := newDaily(s, Options{}, nil).Run(ctx, DailyOptions{Date: tradeDate})
	require.NotNil(t, res.Signal)
	assert.Equal(t, "2000.00", res.Signal.Budget.StringFixed(2))
}

func TestCarriedCash(t *testing.T) {
	trades := []*domain.Trade{
		{ID: "a", TradeDate: tradeDate.AddDate(0, 0, -3), Symbol: "SPY", Action: domain.ActionBuy, Quantity: 6, Price: 100, Amount: 600},
		{ID: "b", TradeDate: tradeDate.AddDate(0, 0, -2), Symbol: "SPY", Action: domain.ActionSell, Quantity: 2, Price: 100, Amount: 200},
		{ID: "c", TradeDate: tradeDate, Symbol: "SPY", Action: domain.ActionBuy, Quantity: 5, Price: 100, Amount: 500},
	}

	tests := []struct {
		name    string
		signals int
		want    float64
	}{
		{"two grants", 2, 1600},
		{"one grant", 1, 600},
		{"floored", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CarriedCash(trades, tt.signals, 1000, tradeDate)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CarriedCash = %v, want %v", got, tt.want)
			}
		})
	}
}

// seedTrades writes n BUY trades with signals across the window ending the
// day before runDate.
func seedTrades(t *testing.T, s testStores, runDate time.Time, n int) {
	t.Helper()
	ctx := context.Background()
	from, _ := Window(runDate, 3)

	var trades []*domain.Trade
	for i := 0; i < n; i++ {
		d := from.AddDate(0, 0, 2*i)
		sigID := fmt.Sprintf("sig-%03d", i)
		require.NoError(t, s.signals.Insert(ctx, &domain.DailySignal{
			ID: sigID, TradeDate: d, Action: domain.ActionBuy, SignalType: domain.SignalTypeMomentum,
			Confidence: 0.6, ConfidenceBucket: domain.ConfidenceMedium, RegimeScore: 0.4, RiskScore: 30,
		}))
		trades = append(trades, &domain.Trade{
			ID: fmt.Sprintf("t-%03d", i), SignalID: sigID, TradeDate: d, Symbol: "SPY",
			Action: domain.ActionBuy, Quantity: 1, Price: 100, Amount: 100,
			Signal: domain.SignalMetadata{
				Action: domain.ActionBuy, SignalType: domain.SignalTypeMomentum,
				Confidence: 0.6, ConfidenceBucket: domain.ConfidenceMedium, RegimeScore: 0.4, RiskScore: 30,
			},
		})
	}
	require.NoError(t, s.trades.InsertBulk(ctx, trades))
}

func newTuning(s testStores, dir string) *TuningRunner {
	opts := Options{Stores: s.stores(), Clock: func() time.Time { return fixedNow }}
	return NewTuningRunner(opts, nil, reporting.NewGenerator(dir).WithClock(func() time.Time { return fixedNow }))
}

func TestTuningRunner_InsufficientHistory(t *testing.T) {
	ctx := context.Background()
	runDate := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	s := createTestStores(t, runDate)
	seedTrades(t, s, runDate, 12)
	dir := t.TempDir()

	res := newTuning(s, dir).Run(ctx, TuningOptions{Date: runDate})

	assert.Equal(t, StatusNothingToDo, res.Status)
	assert.Equal(t, ReasonInsufficientHistory, res.Reason)
	assert.Nil(t, res.Version)

	versions, err := s.versions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	_, err = os.Stat(res.MDPath)
	assert.NoError(t, err)
	assert.Equal(t, string(StatusNothingToDo), res.Report.Status)
}

func TestTuningRunner_DryRunNeverPublishes(t *testing.T) {
	ctx := context.Background()
	runDate := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	s := createTestStores(t, runDate)
	seedTrades(t, s, runDate, 40)

	res := newTuning(s, t.TempDir()).Run(ctx, TuningOptions{Date: runDate, DryRun: true})

	assert.Contains(t, []Status{StatusCompleted, StatusCompletedWithProblems}, res.Status, "problems: %v", res.Problems)
	assert.Nil(t, res.Version)
	require.NotNil(t, res.Report)
	assert.NotNil(t, res.Report.Tuning)
	assert.Equal(t, 40, res.Report.TradeCount)

	versions, err := s.versions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

// publishValidation publishes a version from January with the given
// out-of-sample targets.
func publishValidation(t *testing.T, s testStores, minSharpe, maxDrawdown float64) *domain.ConfigVersion {
	t.Helper()
	p := domain.DefaultParameters()
	p.Validation.MinSharpeTarget = minSharpe
	p.Validation.MaxDrawdownTolerance = maxDrawdown
	v, err := configversion.NewManager(s.versions).Publish(context.Background(), p,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "test", "validation targets")
	require.NoError(t, err)
	return v
}

func TestTuningRunner_RejectedDoesNotPublish(t *testing.T) {
	ctx := context.Background()
	runDate := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	s := createTestStores(t, runDate)
	publishValidation(t, s, 50, 0.0001)
	seedTrades(t, s, runDate, 40)

	res := newTuning(s, t.TempDir()).Run(ctx, TuningOptions{Date: runDate})

	require.NotEmpty(t, res.Changes)
	assert.Equal(t, StatusCompletedWithProblems, res.Status)
	assert.Equal(t, ReasonRejected, res.Reason)
	assert.Nil(t, res.Version)
	require.NotNil(t, res.Validation)
	assert.Equal(t, decision.VerdictReject, res.Validation.Verdict)
	assert.Contains(t, strings.Join(res.Problems, "\n"), "rejected by validation")
	assert.Equal(t, string(StatusCompletedWithProblems), res.Report.Status)

	versions, err := s.versions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestTuningRunner_OverriddenPublishIsAProblem(t *testing.T) {
	ctx := context.Background()
	runDate := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	s := createTestStores(t, runDate)
	publishValidation(t, s, 50, 0.0001)
	seedTrades(t, s, runDate, 40)

	res := newTuning(s, t.TempDir()).Run(ctx, TuningOptions{Date: runDate, AllowUnvalidated: true})

	assert.Equal(t, StatusCompletedWithProblems, res.Status)
	require.NotNil(t, res.Version)
	assert.True(t, res.Validation.Overridden)
	assert.Contains(t, strings.Join(res.Problems, "\n"), "allow-unvalidated")
	assert.Contains(t, res.Version.Notes, "published without passing validation")

	versions, err := s.versions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, versions, 3)
}

func TestTuningRunner_PublishesNextMonth(t *testing.T) {
	ctx := context.Background()
	runDate := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	s := createTestStores(t, runDate)
	prev := publishValidation(t, s, -1000, 1000)
	seedTrades(t, s, runDate, 40)

	res := newTuning(s, t.TempDir()).Run(ctx, TuningOptions{Date: runDate})

	require.NotNil(t, res.Version, "status %s, reason %q, problems %v", res.Status, res.Reason, res.Problems)
	assert.Empty(t, res.Reason)
	assert.Equal(t, decision.VerdictAccept, res.Validation.Verdict)
	assert.False(t, res.Validation.Overridden)
	assert.NotContains(t, strings.Join(res.Problems, "\n"), "validation")
	assert.Equal(t, configversion.NextStart(runDate), res.Version.StartDate)
	assert.True(t, res.Version.IsOpen())

	closed, _, err := configversion.NewManager(s.versions).LoadActive(ctx, runDate)
	require.NoError(t, err)
	assert.Equal(t, prev.ID, closed.ID)
	require.NotNil(t, closed.EndDate)
	assert.Equal(t, runDate, *closed.EndDate)

	next, _, err := configversion.NewManager(s.versions).LoadActive(ctx, configversion.NextStart(runDate))
	require.NoError(t, err)
	assert.Equal(t, res.Version.ID, next.ID)
}

func TestTuningRunner_AlreadyPublished(t *testing.T) {
	ctx := context.Background()
	runDate := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	s := createTestStores(t, runDate)
	_, err := configversion.NewManager(s.versions).Publish(ctx, domain.DefaultParameters(), configversion.NextStart(runDate), "tuner", "")
	require.NoError(t, err)

	res := newTuning(s, t.TempDir()).Run(ctx, TuningOptions{Date: runDate})
	assert.Equal(t, StatusNothingToDo, res.Status)
	assert.Equal(t, ReasonAlreadyPublished, res.Reason)
}

func TestWindow(t *testing.T) {
	from, to := Window(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), to)
}

func TestVersionNotes(t *testing.T) {
	tuned := tuning.Result{Changes: []tuning.Change{
		{Param: "a", Rule: "r1"}, {Param: "b", Rule: "r1"}, {Param: "c", Rule: "r2"},
	}}

	notes := versionNotes("run-1", tuned, &decision.Result{Verdict: decision.VerdictAccept})
	assert.Equal(t, "tuning run run-1: 3 changes (r1, r2); validation ACCEPT", notes)

	notes = versionNotes("run-1", tuned, &decision.Result{Verdict: decision.VerdictReject, Overridden: true})
	assert.Contains(t, notes, "published without passing validation")
}
