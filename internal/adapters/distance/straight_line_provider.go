package distance

import (
	"context"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/ports"
	"errors"

	"github.com/nextmv-io/sdk/measure"
)

var haversine = measure.HaversineByPoint()

// greatCircleMeters returns the haversine distance between two coordinates.
func greatCircleMeters(a, b domain.Coordinates) float64 {
	return haversine.Cost(
		measure.Point{a.Lon, a.Lat},
		measure.Point{b.Lon, b.Lat},
	)
}

// durationSeconds converts meters to seconds at speedKph.
func durationSeconds(meters, speedKph float64) float64 {
	return meters / (speedKph * 1000 / 3600)
}

// StraightLineProvider estimates travel from great-circle distance and a
// constant average speed. It never fails for valid coordinates and is used
// when no routing API key is configured.
type StraightLineProvider struct {
	SpeedKph float64
}

func NewStraightLineProvider(speedKph float64) (*StraightLineProvider, error) {
	if speedKph <= 0 {
		return nil, errors.New("straight-line provider: speed must be positive")
	}
	return &StraightLineProvider{SpeedKph: speedKph}, nil
}

func (p *StraightLineProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (ports.DistanceResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.DistanceResult{}, err
	}
	if !origin.Valid() || !destination.Valid() {
		return ports.DistanceResult{}, errors.New("straight-line distance: invalid coordinates")
	}

	meters := greatCircleMeters(origin, destination)
	return ports.DistanceResult{
		DistanceMeters:  meters,
		DurationSeconds: durationSeconds(meters, p.SpeedKph),
		Reachable:       true,
	}, nil
}
