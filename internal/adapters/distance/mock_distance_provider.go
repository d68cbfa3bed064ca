package distance

import (
	"context"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/ports"
	"fmt"
	"sync"
	"sync/atomic"
)

type MockPair struct {
	From, To    domain.Coordinates
	Meters      float64
	Seconds     float64
	Unreachable bool
}

// MockDistanceProvider answers from a fixed table of directed pairs. Missing
// pairs and pairs registered through Fail return an error.
type MockDistanceProvider struct {
	m     map[string]ports.DistanceResult
	calls atomic.Int64

	mu   sync.Mutex
	fail map[string]error
}

func mockKey(from, to domain.Coordinates) string {
	return from.Key() + "|" + to.Key()
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[mockKey(p.From, p.To)] = ports.DistanceResult{
			DistanceMeters:  p.Meters,
			DurationSeconds: p.Seconds,
			Reachable:       !p.Unreachable,
		}
	}
	return &MockDistanceProvider{m: m, fail: map[string]error{}}
}

// Fail makes every lookup from -> to return err.
func (p *MockDistanceProvider) Fail(from, to domain.Coordinates, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail[mockKey(from, to)] = err
}

// Calls returns the number of GetDistance invocations so far.
func (p *MockDistanceProvider) Calls() int {
	return int(p.calls.Load())
}

func (p *MockDistanceProvider) GetDistance(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (ports.DistanceResult, error) {
	p.calls.Add(1)

	if err := ctx.Err(); err != nil {
		return ports.DistanceResult{}, err
	}

	key := mockKey(origin, destination)

	p.mu.Lock()
	failErr := p.fail[key]
	p.mu.Unlock()
	if failErr != nil {
		return ports.DistanceResult{}, failErr
	}

	r, ok := p.m[key]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("missing pair %s -> %s", origin.Key(), destination.Key())
	}
	return r, nil
}
