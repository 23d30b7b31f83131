package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	query := `
		INSERT INTO trades (
			id, signal_id, trade_date, symbol, action,
			quantity, price, amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		for _, t := range trades {
			if t == nil || t.ID == "" {
				return storage.ErrInvalidInput
			}
			_, err := tx.Exec(ctx, query,
				t.ID, t.SignalID, domain.Day(t.TradeDate), t.Symbol, string(t.Action),
				t.Quantity, t.Price, t.Amount,
			)
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			if err != nil {
				return fmt.Errorf("insert trade %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// GetByDateRange retrieves trades within [from, to] (inclusive) with the
// originating signal's metadata. Trades whose signal is missing carry empty metadata.
func (s *TradeStore) GetByDateRange(ctx context.Context, from, to time.Time) ([]*domain.Trade, error) {
	query := `
		SELECT
			t.id, t.signal_id, t.trade_date, t.symbol, t.action,
			t.quantity, t.price, t.amount,
			COALESCE(s.action, ''), COALESCE(s.regime_score, 0), COALESCE(s.risk_score, 0),
			COALESCE(s.confidence, 0), COALESCE(s.confidence_bucket, ''), COALESCE(s.signal_type, '')
		FROM trades t
		LEFT JOIN daily_signals s ON s.id = t.signal_id
		WHERE t.trade_date >= $1 AND t.trade_date <= $2
		ORDER BY t.trade_date ASC, t.id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var result []*domain.Trade
	for rows.Next() {
		var (
			t         domain.Trade
			action    string
			sigAction string
		)
		err := rows.Scan(
			&t.ID, &t.SignalID, &t.TradeDate, &t.Symbol, &action,
			&t.Quantity, &t.Price, &t.Amount,
			&sigAction, &t.Signal.RegimeScore, &t.Signal.RiskScore,
			&t.Signal.Confidence, &t.Signal.ConfidenceBucket, &t.Signal.SignalType,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.Action = domain.Action(action)
		t.Signal.Action = domain.Action(sigAction)
		t.TradeDate = domain.Day(t.TradeDate)
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}
