package ports

import "context"

// Persistent or in-memory cache of provider results keyed by
// domain.Coordinates.Key() strings. Writers for the same key store the
// same value, so implementations may upsert with last-write-wins.
type DistanceCache interface {
	// Return cached results for one origin and many destinations; misses are absent.
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	// Store results for a single origin.
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}
