package migrations

import (
	"context"
	"fmt"

	"github.com/Karchensky/insider-trades-sub000/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded Postgres schema files in
// lexical order, one Exec per file. Files use IF NOT EXISTS throughout,
// so reruns are safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, f := range files {
		if f.body == "" {
			continue
		}
		if _, err := pool.Exec(ctx, f.body); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
	}
	return nil
}
