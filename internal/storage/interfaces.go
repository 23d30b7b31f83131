package storage

import (
	"context"
	"time"

	"capital-allocator/internal/domain"
)

// PriceStore provides access to price_history storage.
type PriceStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, date).
	InsertBulk(ctx context.Context, bars []*domain.PriceBar) error

	// GetRange retrieves bars for a symbol within [from, to] (inclusive), ordered by date ASC.
	GetRange(ctx context.Context, symbol string, from, to time.Time) ([]*domain.PriceBar, error)
}

// TradeStore provides access to trades storage.
// Trades are written by the execution collaborator; this module only reads them,
// except for the paper backtest and tests.
type TradeStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate id.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByDateRange retrieves trades within [from, to] (inclusive), ordered by
	// trade date then id, each carrying its originating signal's metadata.
	GetByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Trade, error)
}

// SignalStore provides access to daily_signals storage.
type SignalStore interface {
	// Insert adds a new signal. Returns ErrDuplicateKey if a signal exists for the trade date.
	Insert(ctx context.Context, s *domain.DailySignal) error

	// Replace atomically swaps the signal for its trade date. Returns ErrNotFound if none exists.
	Replace(ctx context.Context, s *domain.DailySignal) error

	// GetByDate retrieves the signal for a trade date. Returns ErrNotFound if not exists.
	GetByDate(ctx context.Context, date time.Time) (*domain.DailySignal, error)

	// GetRange retrieves signals within [from, to] (inclusive), ordered by trade date ASC.
	GetRange(ctx context.Context, from, to time.Time) ([]*domain.DailySignal, error)

	// Latest retrieves the most recent signal strictly before date. Returns ErrNotFound if none.
	Latest(ctx context.Context, before time.Time) (*domain.DailySignal, error)
}

// ConfigVersionStore provides access to config_versions storage.
type ConfigVersionStore interface {
	// Insert adds a version without touching others. Returns ErrDuplicateKey if the id
	// exists or if it would create a second open version.
	Insert(ctx context.Context, v *domain.ConfigVersion) error

	// Publish closes the currently open version at v.StartDate - 1 day and inserts v
	// as the new open version, atomically. Returns ErrInvalidInput if v starts on or
	// before the open version's start date.
	Publish(ctx context.Context, v *domain.ConfigVersion) error

	// Active retrieves the version covering asOf. Returns ErrNotFound if none.
	Active(ctx context.Context, asOf time.Time) (*domain.ConfigVersion, error)

	// GetByID retrieves a version by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ConfigVersion, error)

	// List retrieves all versions ordered by start date ASC.
	List(ctx context.Context) ([]*domain.ConfigVersion, error)
}
