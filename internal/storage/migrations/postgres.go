package migrations

import (
	"context"
	"fmt"

	"capital-allocator/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded schema. Every script is idempotent
// (CREATE ... IF NOT EXISTS), so the runner keeps no applied-version table.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	scripts, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if _, err := pool.Exec(ctx, s.body); err != nil {
			return fmt.Errorf("apply migration %s: %w", s.name, err)
		}
	}
	return nil
}
