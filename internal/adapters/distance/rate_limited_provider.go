package distance

import (
	"context"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/ports"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles calls to an inner provider. Callers block in
// Wait until a token is available or ctx is done.
type RateLimitedProvider struct {
	inner   ports.DistanceProvider
	limiter *rate.Limiter
}

// A non-positive ratePerSec disables throttling.
func NewRateLimitedProvider(inner ports.DistanceProvider, ratePerSec float64, burst int) *RateLimitedProvider {
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (p *RateLimitedProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (ports.DistanceResult, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return ports.DistanceResult{}, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.inner.GetDistance(ctx, origin, destination)
}
