package ports

import (
	"context"
	"delivery-planner/internal/domain"
)

// Distance and travel duration between two locations.
// Reachable is false when the provider knows of no usable route.
type DistanceResult struct {
	DistanceMeters  float64
	DurationSeconds float64
	Reachable       bool
}

// Contract for retrieving travel distance and duration between locations.
type DistanceProvider interface {
	// Return travel distance and estimated duration between two coordinates.
	GetDistance(ctx context.Context, origin domain.Coordinates, destination domain.Coordinates) (DistanceResult, error)
}
