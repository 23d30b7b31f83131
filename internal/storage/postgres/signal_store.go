package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"capital-allocator/internal/domain"
	"capital-allocator/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
// Scalar columns are kept for querying; the full signal is stored as JSONB.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `payload`

func signalArgs(s *domain.DailySignal) ([]interface{}, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal signal payload: %w", err)
	}
	return []interface{}{
		domain.Day(s.TradeDate), s.ID, string(s.Action),
		s.RegimeScore, s.RiskScore, s.Confidence,
		s.ConfidenceBucket, s.SignalType, s.ConfigVersionID, s.ContentHash,
		payload, s.GeneratedAt,
	}, nil
}

// Insert adds a new signal. Returns ErrDuplicateKey if the trade date exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.DailySignal) error {
	if sig == nil || sig.ID == "" {
		return storage.ErrInvalidInput
	}
	args, err := signalArgs(sig)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO daily_signals (
			trade_date, id, action,
			regime_score, risk_score, confidence,
			confidence_bucket, signal_type, config_version_id, content_hash,
			payload, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert daily signal: %w", err)
	}
	return nil
}

// Replace swaps the row for the signal's trade date in one transaction.
func (s *SignalStore) Replace(ctx context.Context, sig *domain.DailySignal) error {
	if sig == nil || sig.ID == "" {
		return storage.ErrInvalidInput
	}
	args, err := signalArgs(sig)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO daily_signals (
			trade_date, id, action,
			regime_score, risk_score, confidence,
			confidence_bucket, signal_type, config_version_id, content_hash,
			payload, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM daily_signals WHERE trade_date = $1`, domain.Day(sig.TradeDate))
		if err != nil {
			return fmt.Errorf("delete daily signal: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert replacement signal: %w", err)
		}
		return nil
	})
}

// GetByDate retrieves the signal for a trade date. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByDate(ctx context.Context, date time.Time) (*domain.DailySignal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM daily_signals WHERE trade_date = $1`,
		domain.Day(date))
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get daily signal: %w", err)
	}
	return sig, nil
}

// GetRange retrieves signals within [from, to] (inclusive), ordered by trade date ASC.
func (s *SignalStore) GetRange(ctx context.Context, from, to time.Time) ([]*domain.DailySignal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+signalColumns+` FROM daily_signals
		 WHERE trade_date >= $1 AND trade_date <= $2
		 ORDER BY trade_date ASC`,
		domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, fmt.Errorf("query daily signals: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailySignal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily signal: %w", err)
		}
		result = append(result, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily signals: %w", err)
	}
	return result, nil
}

// Latest retrieves the most recent signal strictly before date.
func (s *SignalStore) Latest(ctx context.Context, before time.Time) (*domain.DailySignal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM daily_signals
		 WHERE trade_date < $1
		 ORDER BY trade_date DESC
		 LIMIT 1`,
		domain.Day(before))
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest signal: %w", err)
	}
	return sig, nil
}

func scanSignal(row pgx.Row) (*domain.DailySignal, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return nil, err
	}
	var sig domain.DailySignal
	if err := json.Unmarshal(payload, &sig); err != nil {
		return nil, fmt.Errorf("unmarshal signal payload: %w", err)
	}
	sig.TradeDate = domain.Day(sig.TradeDate)
	return &sig, nil
}
