package cache

import (
	"context"
	"database/sql"
	"delivery-planner/internal/platform/obs"
	"delivery-planner/internal/ports"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresDistanceCache stores provider results in Postgres through the pgx
// database/sql driver. Rows older than TTL are treated as misses.
type PostgresDistanceCache struct {
	DB  *sql.DB
	TTL time.Duration

	now func() time.Time
}

func NewPostgresDistanceCache(db *sql.DB, ttl time.Duration) *PostgresDistanceCache {
	return &PostgresDistanceCache{DB: db, TTL: ttl, now: time.Now}
}

// Fetch cached distances for one origin and multiple destinations.
func (s *PostgresDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.postgres.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}
	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	q := `
	SELECT destination, distance_meters, duration_seconds, reachable
	FROM distance_cache
	WHERE origin = $1
		AND destination = ANY($2::text[])
		AND updated_at >= $3;
	`

	rows, err := s.DB.QueryContext(ctx, q, origin, uniq, cutoff(s.now, s.TTL))
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	return scanResults(rows, len(uniq))
}

// Store many cached distance results for a single origin.
func (s *PostgresDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) error {
	return putMany(ctx, s.DB, origin, results, s.now().Unix(), `
	INSERT INTO distance_cache (origin, destination, distance_meters, duration_seconds, reachable, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		reachable = EXCLUDED.reachable,
		updated_at = EXCLUDED.updated_at;
	`)
}

// cutoff returns the oldest updated_at still considered fresh. A zero TTL keeps rows forever.
func cutoff(now func() time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now().Add(-ttl).Unix()
}

func scanResults(rows *sql.Rows, size int) (map[string]ports.DistanceResult, error) {
	out := make(map[string]ports.DistanceResult, size)
	for rows.Next() {
		var dest string
		var r ports.DistanceResult
		if err := rows.Scan(&dest, &r.DistanceMeters, &r.DurationSeconds, &r.Reachable); err != nil {
			return nil, fmt.Errorf("get distance cache: scan rows: %w", err)
		}
		out[dest] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get distance cache: row iteration: %w", err)
	}
	return out, nil
}

// putMany upserts results inside one transaction using the dialect's statement.
func putMany(
	ctx context.Context,
	db *sql.DB,
	origin string,
	results map[string]ports.DistanceResult,
	updatedAt int64,
	query string,
) error {
	if db == nil {
		return errors.New("distance cache: db is nil")
	}
	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert distance cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("insert distance cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert distance cache: empty destination key")
		}

		if _, err := stmt.ExecContext(ctx, origin, dest, r.DistanceMeters, r.DurationSeconds, r.Reachable, updatedAt); err != nil {
			return fmt.Errorf("insert distance cache dest=%q: %w", dest, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert distance cache commit: %w", err)
	}

	return nil
}
