package distance

import (
	"context"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/platform/obs"
	"delivery-planner/internal/ports"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultORSBaseURL = "https://api.openrouteservice.org"
	defaultORSProfile = "driving-car"
)

// ORSDistanceProvider implements DistanceProvider using the OpenRouteService
// matrix endpoint. Transient failures are retried with exponential backoff;
// caching and fallback are left to the caller.
//
// The provider is safe for concurrent use.
type ORSDistanceProvider struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string

	maxAttempts int
	backoff     time.Duration
}

func NewORSDistanceProvider(apiKey, profile string) (*ORSDistanceProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if profile == "" {
		profile = defaultORSProfile
	}

	provider := &ORSDistanceProvider{
		session:     &http.Client{Timeout: 10 * time.Second},
		apiKey:      apiKey,
		baseURL:     defaultORSBaseURL,
		profile:     profile,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}

	return provider, nil
}

// Return travel distance and duration for one origin/destination pair.
// A pair ORS cannot route is returned with Reachable=false and no error.
func (o *ORSDistanceProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.GetDistance")(&err)

	if !origin.Valid() || !destination.Valid() {
		return ports.DistanceResult{}, errors.New("get ORS distance: origin and destination must be valid coordinates")
	}

	row, err := o.fetchMatrixRow(ctx, origin, []domain.Coordinates{destination})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf(
			"get ORS distance %s -> %s: %w",
			origin.Key(), destination.Key(), err,
		)
	}

	return row[0], nil
}
