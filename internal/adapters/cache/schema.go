package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQL dialects understood by InitSchema.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Create the distance_cache table and its lookup index.
func InitSchema(ctx context.Context, db *sql.DB, dialect string) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	realType := "REAL"
	boolType := "INTEGER"
	switch dialect {
	case DialectSQLite:
	case DialectPostgres:
		realType = "DOUBLE PRECISION"
		boolType = "BOOLEAN"
	default:
		return fmt.Errorf("init schema: unknown dialect %q", dialect)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS distance_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_meters %[1]s NOT NULL,
		duration_seconds %[1]s NOT NULL,
		reachable %[2]s NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (origin, destination)
	);
	`, realType, boolType),
		`
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
	ON distance_cache(destination, origin);
	`,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// uniqueKeys trims, drops empty entries, and removes duplicates keeping order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
