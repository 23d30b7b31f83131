// Package orchestrator runs the two batch paths: the daily signal and the
// monthly tuning. Each run acquires a period lock, reads its inputs through
// the stores, and reports a Status instead of panicking.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"capital-allocator/internal/configversion"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/observability"
	"capital-allocator/internal/runlock"
	"capital-allocator/internal/storage"
)

// Status is the outcome of a run.
type Status string

const (
	StatusNothingToDo           Status = "nothing_to_do"
	StatusCompleted             Status = "completed"
	StatusCompletedWithProblems Status = "completed_with_problems"
	StatusFailed                Status = "failed"
)

// Reasons carried on runs that stop early.
const (
	ReasonInsufficientHistory = "insufficient history"
	ReasonLockHeld            = "another run holds the lock"
	ReasonSignalUnchanged     = "signal already exists with identical content"
	ReasonNoChanges           = "no parameter changes"
	ReasonRejected            = "candidate rejected by validation"
	ReasonDryRun              = "dry run"
	ReasonAlreadyPublished    = "version for next month already published"
)

// Result is the common part of a run outcome.
type Result struct {
	Status   Status
	Reason   string
	Problems []string
	Warnings []string
	Duration time.Duration
}

func (r *Result) problem(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

func (r *Result) fail(format string, args ...interface{}) {
	r.Status = StatusFailed
	r.problem(format, args...)
}

// finish turns a completed run with problems into completed_with_problems.
func (r *Result) finish() {
	if r.Status == StatusCompleted && len(r.Problems) > 0 {
		r.Status = StatusCompletedWithProblems
	}
}

// Stores groups the persistence collaborators.
type Stores struct {
	Prices   storage.PriceStore
	Trades   storage.TradeStore
	Signals  storage.SignalStore
	Versions storage.ConfigVersionStore
}

// Options configures both runners. Only Stores is required.
type Options struct {
	Stores  Stores
	Locker  runlock.Locker
	LockTTL time.Duration
	Logger  *logging.Logger
	Metrics *observability.Metrics
	Clock   func() time.Time
}

type base struct {
	stores   Stores
	versions *configversion.Manager
	locker   runlock.Locker
	lockTTL  time.Duration
	log      *logging.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func newBase(opts Options) base {
	b := base{
		stores:  opts.Stores,
		locker:  opts.Locker,
		lockTTL: opts.LockTTL,
		log:     opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Clock,
	}
	if b.locker == nil {
		b.locker = runlock.NewMemoryLocker()
	}
	if b.lockTTL <= 0 {
		b.lockTTL = 30 * time.Minute
	}
	if b.log == nil {
		b.log = logging.Nop()
	}
	if b.now == nil {
		b.now = func() time.Time { return time.Now().UTC() }
	}
	b.versions = configversion.NewManager(b.stores.Versions).WithClock(b.now)
	return b
}

// timed records a store call when metrics are configured.
func (b *base) timed(store, op string, fn func() error) error {
	if b.metrics == nil {
		return fn()
	}
	return b.metrics.Timed(store, op, fn)
}

// lock acquires key. A held lock is reported as nothing to do.
func (b *base) lock(ctx context.Context, key string, res *Result) (release func(), ok bool) {
	err := b.locker.Acquire(ctx, key, b.lockTTL)
	switch {
	case errors.Is(err, runlock.ErrHeld):
		res.Status = StatusNothingToDo
		res.Reason = ReasonLockHeld
		return nil, false
	case err != nil:
		res.fail("acquire lock %s: %v", key, err)
		return nil, false
	}
	return func() {
		if err := b.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			b.log.Warn("release lock failed", logging.String("key", key), logging.Error(err))
		}
	}, true
}

// loadBars reads [from, to] for every asset.
func (b *base) loadBars(ctx context.Context, assets []string, from, to time.Time) (map[string][]*domain.PriceBar, error) {
	out := make(map[string][]*domain.PriceBar, len(assets))
	for _, sym := range assets {
		var bars []*domain.PriceBar
		err := b.timed("prices", "get_range", func() error {
			var err error
			bars, err = b.stores.Prices.GetRange(ctx, sym, from, to)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("load prices %s: %w", sym, err)
		}
		out[sym] = bars
	}
	return out, nil
}

// record logs and counts a finished run.
func (b *base) record(path string, res *Result, started time.Time) {
	res.Duration = time.Since(started)
	if b.metrics != nil {
		b.metrics.RecordRun(path, string(res.Status), res.Duration, b.now())
	}
	fields := []logging.Field{
		logging.String("path", path),
		logging.String("status", string(res.Status)),
		logging.Duration("duration_ms", res.Duration),
	}
	if res.Reason != "" {
		fields = append(fields, logging.String("reason", res.Reason))
	}
	if len(res.Problems) > 0 {
		fields = append(fields, logging.Strings("problems", res.Problems))
	}
	if res.Status == StatusFailed {
		b.log.Error("run failed", fields...)
		return
	}
	b.log.Info("run finished", fields...)
}

// guard converts a panic into a failed result.
func guard(res *Result) {
	if r := recover(); r != nil {
		res.Status = StatusFailed
		res.problem("panic: %v", r)
	}
}

func flatten(bars map[string][]*domain.PriceBar) []*domain.PriceBar {
	var out []*domain.PriceBar
	for _, list := range bars {
		out = append(out, list...)
	}
	return out
}
