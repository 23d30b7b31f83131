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

// ConfigVersionStore implements storage.ConfigVersionStore using PostgreSQL.
// The partial unique index on (end_date IS NULL) backs the single-open-version rule.
type ConfigVersionStore struct {
	pool *Pool
}

// NewConfigVersionStore creates a new ConfigVersionStore.
func NewConfigVersionStore(pool *Pool) *ConfigVersionStore {
	return &ConfigVersionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConfigVersionStore = (*ConfigVersionStore)(nil)

const versionColumns = `id, start_date, end_date, created_by, notes, created_at, params`

const insertVersion = `
	INSERT INTO config_versions (
		id, start_date, end_date, created_by, notes, created_at, params
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func versionArgs(v *domain.ConfigVersion) ([]interface{}, error) {
	params, err := json.Marshal(v.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	var end *time.Time
	if v.EndDate != nil {
		d := domain.Day(*v.EndDate)
		end = &d
	}
	return []interface{}{
		v.ID, domain.Day(v.StartDate), end, v.CreatedBy, v.Notes, v.CreatedAt, params,
	}, nil
}

// Insert adds a version. Returns ErrDuplicateKey on id collision or a second open version.
func (s *ConfigVersionStore) Insert(ctx context.Context, v *domain.ConfigVersion) error {
	if v == nil || v.ID == "" {
		return storage.ErrInvalidInput
	}
	args, err := versionArgs(v)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, insertVersion, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert config version: %w", err)
	}
	return nil
}

// Publish closes the open version at v.StartDate - 1 and inserts v in one transaction.
func (s *ConfigVersionStore) Publish(ctx context.Context, v *domain.ConfigVersion) error {
	if v == nil || v.ID == "" || !v.IsOpen() {
		return storage.ErrInvalidInput
	}
	args, err := versionArgs(v)
	if err != nil {
		return err
	}
	start := domain.Day(v.StartDate)

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		var (
			openID    string
			openStart time.Time
		)
		err := tx.QueryRow(ctx,
			`SELECT id, start_date FROM config_versions WHERE end_date IS NULL FOR UPDATE`,
		).Scan(&openID, &openStart)
		switch {
		case isNotFoundError(err):
		case err != nil:
			return fmt.Errorf("lock open config version: %w", err)
		default:
			if !start.After(domain.Day(openStart)) {
				return storage.ErrInvalidInput
			}
			if _, err := tx.Exec(ctx,
				`UPDATE config_versions SET end_date = $1 WHERE id = $2`,
				start.AddDate(0, 0, -1), openID,
			); err != nil {
				return fmt.Errorf("close config version %s: %w", openID, err)
			}
		}

		if _, err := tx.Exec(ctx, insertVersion, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert config version: %w", err)
		}
		return nil
	})
}

// Active retrieves the version covering asOf. Returns ErrNotFound if none.
func (s *ConfigVersionStore) Active(ctx context.Context, asOf time.Time) (*domain.ConfigVersion, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM config_versions
		 WHERE start_date <= $1 AND (end_date IS NULL OR end_date >= $1)
		 ORDER BY start_date DESC
		 LIMIT 1`,
		domain.Day(asOf))
	v, err := scanVersion(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active config version: %w", err)
	}
	return v, nil
}

// GetByID retrieves a version by its ID. Returns ErrNotFound if not exists.
func (s *ConfigVersionStore) GetByID(ctx context.Context, id string) (*domain.ConfigVersion, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM config_versions WHERE id = $1`, id)
	v, err := scanVersion(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get config version: %w", err)
	}
	return v, nil
}

// List retrieves all versions ordered by start date ASC.
func (s *ConfigVersionStore) List(ctx context.Context) ([]*domain.ConfigVersion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+versionColumns+` FROM config_versions ORDER BY start_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("query config versions: %w", err)
	}
	defer rows.Close()

	var result []*domain.ConfigVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan config version: %w", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config versions: %w", err)
	}
	return result, nil
}

func scanVersion(row pgx.Row) (*domain.ConfigVersion, error) {
	var (
		v      domain.ConfigVersion
		params []byte
	)
	if err := row.Scan(&v.ID, &v.StartDate, &v.EndDate, &v.CreatedBy, &v.Notes, &v.CreatedAt, &params); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &v.Params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	v.StartDate = domain.Day(v.StartDate)
	if v.EndDate != nil {
		d := domain.Day(*v.EndDate)
		v.EndDate = &d
	}
	return &v, nil
}
