// Package app wires configuration, logging, metrics and stores for the
// batch commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"capital-allocator/internal/config"
	"capital-allocator/internal/domain"
	"capital-allocator/internal/logging"
	"capital-allocator/internal/observability"
	"capital-allocator/internal/orchestrator"
	"capital-allocator/internal/publish"
	"capital-allocator/internal/runlock"
	chstore "capital-allocator/internal/storage/clickhouse"
	"capital-allocator/internal/storage/memory"
	pgstore "capital-allocator/internal/storage/postgres"
)

// App holds the collaborators shared by the commands.
type App struct {
	Config  *config.Config
	Log     *logging.Logger
	Metrics *observability.Metrics
	Stores  orchestrator.Stores
	Locker  runlock.Locker

	// Postgres and ClickHouse are nil on the memory backend.
	Postgres   *pgstore.Pool
	ClickHouse *chstore.Conn

	closers []func()
}

// Open loads the configuration at path, applies override and connects the
// configured backends.
func Open(ctx context.Context, path, name string, override func(*config.Config)) (*App, error) {
	cfg, err := config.LoadWith(path, override)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     log.With(logging.String("cmd", name)),
		Metrics: observability.NewMetrics(""),
		Locker:  runlock.NewMemoryLocker(),
	}
	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config
	a.Stores = orchestrator.Stores{
		Prices:   memory.NewPriceStore(),
		Trades:   memory.NewTradeStore(),
		Signals:  memory.NewSignalStore(),
		Versions: memory.NewConfigVersionStore(),
	}

	if cfg.ClickHouse.DSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return err
		}
		a.ClickHouse = conn
		a.closers = append(a.closers, func() { _ = conn.Close() })
		a.Stores.Prices = chstore.NewPriceStore(conn)
	}

	if cfg.Store == config.StorePostgres {
		if a.ClickHouse == nil {
			return errors.New("clickhouse.dsn is required when store is postgres")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		a.Postgres = pool
		a.closers = append(a.closers, pool.Close)
		a.Stores.Trades = pgstore.NewTradeStore(pool)
		a.Stores.Signals = pgstore.NewSignalStore(pool)
		a.Stores.Versions = pgstore.NewConfigVersionStore(pool)
	}

	if cfg.Redis.Addr != "" {
		locker, err := runlock.NewRedisLocker(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		if err != nil {
			return err
		}
		a.Locker = locker
		a.closers = append(a.closers, func() { _ = locker.Close() })
	}
	return nil
}

// Options returns runner options over the connected stores.
func (a *App) Options() orchestrator.Options {
	return orchestrator.Options{
		Stores:  a.Stores,
		Locker:  a.Locker,
		LockTTL: a.Config.Redis.LockTTL,
		Logger:  a.Log,
		Metrics: a.Metrics,
	}
}

// Publisher returns the Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func (a *App) Publisher() (publish.Publisher, error) {
	k := a.Config.Kafka
	if len(k.Brokers) == 0 {
		a.Log.Warn("no kafka brokers configured, signals are not published")
		return publish.Nop{}, nil
	}
	p, err := publish.NewKafkaPublisher(k.Brokers, k.Topic, k.WriteTimeout)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = p.Close() })
	return p, nil
}

// Close flushes the metrics textfile and releases connections in reverse
// order.
func (a *App) Close() {
	if a.Metrics != nil && a.Config != nil {
		if err := a.Metrics.WriteToTextfile(a.Config.Metrics.TextfilePath); err != nil {
			a.Log.Warn("write metrics textfile", logging.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ParseDate parses YYYY-MM-DD. An empty string yields today in UTC.
func ParseDate(s string, now func() time.Time) (time.Time, error) {
	if s == "" {
		return domain.Day(now().UTC()), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// ExitCode maps a run status to the process exit code: 0 for completed and
// nothing to do, 2 for completed with problems, 1 for failed.
func ExitCode(s orchestrator.Status) int {
	switch s {
	case orchestrator.StatusCompleted, orchestrator.StatusNothingToDo:
		return 0
	case orchestrator.StatusCompletedWithProblems:
		return 2
	default:
		return 1
	}
}
