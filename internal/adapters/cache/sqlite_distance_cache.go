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

// SQLite backed cache for origin->destination distance results.
// Keys are expected to be normalized by the caller (domain.Coordinates.Key).
type SqliteDistanceCache struct {
	DB  *sql.DB
	TTL time.Duration

	now func() time.Time
}

func NewSqliteDistanceCache(db *sql.DB, ttl time.Duration) *SqliteDistanceCache {
	return &SqliteDistanceCache{DB: db, TTL: ttl, now: time.Now}
}

// Fetch cached distances for one origin and multiple destinations.
func (s *SqliteDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.sqlite.GetMany")(&err)

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

	ph := make([]string, len(uniq))
	args := make([]any, 0, 2+len(uniq))
	args = append(args, origin, cutoff(s.now, s.TTL))
	for i, d := range uniq {
		ph[i] = "?"
		args = append(args, d)
	}

	// SQLite cannot bind a slice to IN (...); only placeholders are interpolated.
	q := fmt.Sprintf(`
	SELECT
		destination,
		distance_meters,
		duration_seconds,
		reachable
	FROM distance_cache
	WHERE origin = ?
		AND updated_at >= ?
		AND destination IN (%s);
	`, strings.Join(ph, ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	return scanResults(rows, len(uniq))
}

// Store many cached distance results for a single origin.
func (s *SqliteDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) error {
	return putMany(ctx, s.DB, origin, results, s.now().Unix(), `
	INSERT OR REPLACE INTO distance_cache (
		origin,
		destination,
		distance_meters,
		duration_seconds,
		reachable,
		updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
}
