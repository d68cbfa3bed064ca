package distance

import (
	"context"
	"delivery-planner/internal/adapters/cache"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/ports"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	depot = domain.NewDepot("depot", domain.Coordinates{Lon: 0, Lat: 0})
	nodeA = domain.NewDestination("A", domain.Coordinates{Lon: 0.01, Lat: 0})
	nodeB = domain.NewDestination("B", domain.Coordinates{Lon: 0, Lat: 0.01})
	far   = domain.NewDestination("far", domain.Coordinates{Lon: 0, Lat: 10})
)

// symmetricPairs registers both directions of every given pair.
func symmetricPairs(pairs ...MockPair) []MockPair {
	out := make([]MockPair, 0, 2*len(pairs))
	for _, p := range pairs {
		rev := p
		rev.From, rev.To = p.To, p.From
		out = append(out, p, rev)
	}
	return out
}

func triangle() *MockDistanceProvider {
	return NewMockDistanceProvider(symmetricPairs(
		MockPair{From: depot.Coordinates, To: nodeA.Coordinates, Meters: 1500, Seconds: 120},
		MockPair{From: depot.Coordinates, To: nodeB.Coordinates, Meters: 1700, Seconds: 150},
		MockPair{From: nodeA.Coordinates, To: nodeB.Coordinates, Meters: 2100, Seconds: 170},
	))
}

func newAdapter(t *testing.T, p *MockDistanceProvider, c *cache.MemoryDistanceCache, mutate func(*Options)) *Adapter {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	// A typed nil cache must not reach the adapter as a non-nil interface.
	var dc ports.DistanceCache
	if c != nil {
		dc = c
	}
	a, err := NewAdapter(p, dc, opts)
	require.NoError(t, err)
	return a
}

func TestBuildMatrixSymmetric(t *testing.T) {
	provider := triangle()
	a := newAdapter(t, provider, nil, nil)

	m, err := a.BuildMatrix(context.Background(), []domain.Node{depot, nodeA, nodeB})
	require.NoError(t, err)

	assert.Equal(t, 3, provider.Calls(), "one lookup per unordered pair")
	assert.Equal(t, 0.0, m.Cost(0, 0))
	assert.Equal(t, 1500.0, m.Cost(0, 1))
	assert.Equal(t, 1500.0, m.Cost(1, 0))
	assert.Equal(t, 2100.0, m.Cost(2, 1))
	assert.True(t, m.IsSymmetric(0))
	assert.Zero(t, m.DegradedPairs())
}

func TestBuildMatrixAsymmetricDuration(t *testing.T) {
	provider := NewMockDistanceProvider([]MockPair{
		{From: depot.Coordinates, To: nodeA.Coordinates, Meters: 1000, Seconds: 100},
		{From: nodeA.Coordinates, To: depot.Coordinates, Meters: 1200, Seconds: 130},
	})
	a := newAdapter(t, provider, nil, func(o *Options) {
		o.AssumeSymmetric = false
		o.Metric = MetricDuration
	})

	m, err := a.BuildMatrix(context.Background(), []domain.Node{depot, nodeA})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.Calls())
	assert.Equal(t, 100.0, m.Cost(0, 1))
	assert.Equal(t, 130.0, m.Cost(1, 0))
}

func TestBuildMatrixWarmCacheIsIdempotent(t *testing.T) {
	provider := triangle()
	c := cache.NewMemoryDistanceCache(time.Hour, 0)
	a := newAdapter(t, provider, c, nil)
	nodes := []domain.Node{depot, nodeA, nodeB}

	first, err := a.BuildMatrix(context.Background(), nodes)
	require.NoError(t, err)
	callsAfterFirst := provider.Calls()

	// Reversed order still hits the cache thanks to canonical pair orientation.
	second, err := a.BuildMatrix(context.Background(), []domain.Node{nodeB, nodeA, depot})
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, provider.Calls(), "warm cache bypasses the provider")
	for _, from := range nodes {
		for _, to := range nodes {
			i1, _ := first.IndexOf(from.ID)
			j1, _ := first.IndexOf(to.ID)
			i2, _ := second.IndexOf(from.ID)
			j2, _ := second.IndexOf(to.ID)
			assert.Equal(t, first.Cost(i1, j1), second.Cost(i2, j2), "%s -> %s", from.ID, to.ID)
		}
	}
}

func TestBuildMatrixFallsBackOnProviderFailure(t *testing.T) {
	provider := triangle()
	provider.Fail(nodeA.Coordinates, nodeB.Coordinates, errors.New("timeout"))
	provider.Fail(nodeB.Coordinates, nodeA.Coordinates, errors.New("timeout"))
	c := cache.NewMemoryDistanceCache(0, 0)
	a := newAdapter(t, provider, c, nil)

	m, err := a.BuildMatrix(context.Background(), []domain.Node{depot, nodeA, nodeB})
	require.NoError(t, err)

	ia, _ := m.IndexOf("A")
	ib, _ := m.IndexOf("B")
	assert.True(t, m.Reachable(ia, ib))
	assert.True(t, m.Degraded(ia, ib))
	assert.True(t, m.Degraded(ib, ia))
	assert.InDelta(t, greatCircleMeters(nodeA.Coordinates, nodeB.Coordinates), m.Cost(ia, ib), 1e-6)
	assert.False(t, m.Degraded(0, ia))
	assert.Equal(t, 2, m.DegradedPairs())
	assert.Equal(t, 2, c.Len(), "fallback estimates are not cached")
}

func TestBuildMatrixRadiusPolicy(t *testing.T) {
	provider := triangle()
	a := newAdapter(t, provider, nil, nil)

	m, err := a.BuildMatrix(context.Background(), []domain.Node{depot, nodeA, far})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.Calls(), "out-of-radius pairs never reach the provider")
	assert.False(t, m.Reachable(0, 2))
	assert.False(t, m.Reachable(2, 1))
	assert.True(t, math.IsInf(m.Cost(2, 0), 1))
}

func TestBuildMatrixProviderUnreachableIsCached(t *testing.T) {
	provider := NewMockDistanceProvider(symmetricPairs(
		MockPair{From: depot.Coordinates, To: nodeA.Coordinates, Unreachable: true},
	))
	c := cache.NewMemoryDistanceCache(0, 0)
	a := newAdapter(t, provider, c, nil)

	m, err := a.BuildMatrix(context.Background(), []domain.Node{depot, nodeA})
	require.NoError(t, err)
	assert.False(t, m.Reachable(0, 1))
	assert.Equal(t, 1, c.Len())
}

func TestBuildMatrixRejectsInvalidInput(t *testing.T) {
	a := newAdapter(t, triangle(), nil, nil)

	bad := domain.NewDestination("bad", domain.Coordinates{Lon: 200, Lat: 0})
	_, err := a.BuildMatrix(context.Background(), []domain.Node{depot, bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = a.BuildMatrix(context.Background(), []domain.Node{depot, nodeA, nodeA})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = a.BuildMatrix(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildMatrixCancelled(t *testing.T) {
	provider := triangle()
	a := newAdapter(t, provider, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.BuildMatrix(ctx, []domain.Node{depot, nodeA, nodeB})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetCost(t *testing.T) {
	provider := triangle()
	c := cache.NewMemoryDistanceCache(0, 0)
	a := newAdapter(t, provider, c, nil)
	ctx := context.Background()

	cost, ok, err := a.GetCost(ctx, depot, nodeA)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1500.0, cost)

	_, _, err = a.GetCost(ctx, depot, nodeA)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls(), "second lookup served from cache")

	cost, ok, err = a.GetCost(ctx, depot, far)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, math.IsInf(cost, 1))

	cost, ok, err = a.GetCost(ctx, nodeA, nodeA)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, cost)
}

func TestNewAdapterValidatesOptions(t *testing.T) {
	p := triangle()
	for name, mutate := range map[string]func(*Options){
		"radius":      func(o *Options) { o.MaxRadiusMeters = 0 },
		"speed":       func(o *Options) { o.FallbackSpeedKph = 0 },
		"concurrency": func(o *Options) { o.Concurrency = 0 },
		"metric":      func(o *Options) { o.Metric = "fuel" },
	} {
		opts := DefaultOptions()
		mutate(&opts)
		_, err := NewAdapter(p, nil, opts)
		assert.Error(t, err, name)
	}
}
