package distance

import (
	"context"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/platform/metrics"
	"delivery-planner/internal/platform/obs"
	"delivery-planner/internal/ports"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Metric string

const (
	MetricDistance Metric = "distance"
	MetricDuration Metric = "duration"
)

// Options configures how the Adapter turns provider answers into matrix costs.
type Options struct {
	MaxRadiusMeters  float64
	FallbackSpeedKph float64
	Concurrency      int
	Metric           Metric
	AssumeSymmetric  bool
}

func DefaultOptions() Options {
	return Options{
		MaxRadiusMeters:  500_000,
		FallbackSpeedKph: 50,
		Concurrency:      5,
		Metric:           MetricDistance,
		AssumeSymmetric:  true,
	}
}

// Adapter builds cost matrices from a DistanceProvider. Lookups go through
// the optional cache first; provider failures degrade to a straight-line
// estimate and pairs beyond the delivery radius are unreachable.
//
// The adapter is safe for concurrent use.
type Adapter struct {
	provider ports.DistanceProvider
	cache    ports.DistanceCache
	opts     Options
}

// NewAdapter validates opts. cache may be nil.
func NewAdapter(provider ports.DistanceProvider, cache ports.DistanceCache, opts Options) (*Adapter, error) {
	if provider == nil {
		return nil, errors.New("distance adapter: provider is nil")
	}
	if opts.MaxRadiusMeters <= 0 {
		return nil, errors.New("distance adapter: max radius must be positive")
	}
	if opts.FallbackSpeedKph <= 0 {
		return nil, errors.New("distance adapter: fallback speed must be positive")
	}
	if opts.Concurrency <= 0 {
		return nil, errors.New("distance adapter: concurrency must be positive")
	}
	switch opts.Metric {
	case MetricDistance, MetricDuration:
	default:
		return nil, fmt.Errorf("distance adapter: unknown metric %q", opts.Metric)
	}

	return &Adapter{provider: provider, cache: cache, opts: opts}, nil
}

func (a *Adapter) Metric() Metric { return a.opts.Metric }

// pair is one directed lookup. For symmetric builds the result also fills (j, i).
type pair struct {
	i, j     int
	from, to domain.Coordinates

	result   ports.DistanceResult
	degraded bool
	resolved bool
}

// newPair orients symmetric lookups canonically so both directions share one cache entry.
func (a *Adapter) newPair(i, j int, from, to domain.Coordinates) *pair {
	p := &pair{i: i, j: j, from: from, to: to}
	if a.opts.AssumeSymmetric && p.destKey() < p.originKey() {
		p.from, p.to = p.to, p.from
	}
	return p
}

func (p *pair) originKey() string { return p.from.Key() }
func (p *pair) destKey() string   { return p.to.Key() }

// Return the cost and reachability between two nodes. The error is non-nil
// only for invalid coordinates or cancellation.
func (a *Adapter) GetCost(ctx context.Context, from, to domain.Node) (float64, bool, error) {
	if err := validateNode(from); err != nil {
		return 0, false, err
	}
	if err := validateNode(to); err != nil {
		return 0, false, err
	}
	if from.ID == to.ID || from.Coordinates.Key() == to.Coordinates.Key() {
		return 0, true, nil
	}

	p := a.newPair(0, 0, from.Coordinates, to.Coordinates)
	if a.outOfRadius(ctx, p) {
		return domain.Unreachable, false, nil
	}

	a.readCache(ctx, []*pair{p})
	if !p.resolved {
		if err := a.lookup(ctx, p); err != nil {
			return 0, false, err
		}
	}

	if !p.result.Reachable {
		return domain.Unreachable, false, nil
	}
	return a.cost(p.result), true, nil
}

// Build the pairwise matrix for nodes, indexed in the given order.
func (a *Adapter) BuildMatrix(ctx context.Context, nodes []domain.Node) (_ *domain.CostMatrix, err error) {
	defer obs.Time(ctx, "distance.BuildMatrix")(&err)
	start := time.Now()
	defer func() { metrics.MatrixBuildDuration.Observe(time.Since(start).Seconds()) }()

	if len(nodes) == 0 {
		return nil, &domain.InvalidInputError{Field: "nodes", Reason: "at least one node is required"}
	}

	ids := make([]string, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		if err := validateNode(n); err != nil {
			return nil, err
		}
		if _, ok := seen[n.ID]; ok {
			return nil, &domain.InvalidInputError{Field: "nodes", Reason: fmt.Sprintf("duplicate node id %q", n.ID)}
		}
		seen[n.ID] = struct{}{}
		ids[i] = n.ID
	}

	m, err := domain.NewCostMatrix(ids)
	if err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}

	pending := a.plan(ctx, nodes, m)
	a.readCache(ctx, pending)

	misses := make([]*pair, 0, len(pending))
	for _, p := range pending {
		if !p.resolved {
			misses = append(misses, p)
		}
	}

	if err := a.lookupAll(ctx, misses); err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}

	for _, p := range pending {
		if err := a.fill(m, p); err != nil {
			return nil, fmt.Errorf("build matrix: %w", err)
		}
	}

	obs.Logger(ctx).WithFields(log.Fields{
		"nodes":    len(nodes),
		"lookups":  len(pending),
		"misses":   len(misses),
		"degraded": m.DegradedPairs(),
	}).Info("cost matrix built")

	return m, nil
}

// plan settles trivial and out-of-radius pairs directly on m and returns the rest.
func (a *Adapter) plan(ctx context.Context, nodes []domain.Node, m *domain.CostMatrix) []*pair {
	pending := make([]*pair, 0, len(nodes)*len(nodes))
	for i := range nodes {
		for j := range nodes {
			if i == j || (a.opts.AssumeSymmetric && j < i) {
				continue
			}

			p := a.newPair(i, j, nodes[i].Coordinates, nodes[j].Coordinates)

			switch {
			case p.originKey() == p.destKey():
				p.result = ports.DistanceResult{Reachable: true}
				p.resolved = true
			case a.outOfRadius(ctx, p):
				// m keeps the unreachable default.
				continue
			}
			pending = append(pending, p)
		}
	}

	return pending
}

func (a *Adapter) outOfRadius(ctx context.Context, p *pair) bool {
	meters := greatCircleMeters(p.from, p.to)
	if meters <= a.opts.MaxRadiusMeters {
		return false
	}

	metrics.OutOfRadiusPairs.Inc()
	obs.Logger(ctx).WithFields(log.Fields{
		"origin":      p.originKey(),
		"destination": p.destKey(),
		"meters":      math.Round(meters),
		"max_meters":  a.opts.MaxRadiusMeters,
	}).Debug("pair beyond delivery radius")
	return true
}

// readCache resolves pairs from the cache, one GetMany per origin. Cache
// failures are logged and treated as misses.
func (a *Adapter) readCache(ctx context.Context, pairs []*pair) {
	if a.cache == nil {
		return
	}

	byOrigin := make(map[string][]*pair)
	var origins []string
	for _, p := range pairs {
		if p.resolved {
			continue
		}
		k := p.originKey()
		if _, ok := byOrigin[k]; !ok {
			origins = append(origins, k)
		}
		byOrigin[k] = append(byOrigin[k], p)
	}

	for _, origin := range origins {
		group := byOrigin[origin]
		keys := make([]string, len(group))
		for i, p := range group {
			keys[i] = p.destKey()
		}

		hits, err := a.cache.GetMany(ctx, origin, keys)
		if err != nil {
			obs.Logger(ctx).WithError(err).WithField("origin", origin).Warn("distance cache read failed")
			metrics.CacheLookups.WithLabelValues("error").Add(float64(len(group)))
			continue
		}

		for _, p := range group {
			r, ok := hits[p.destKey()]
			if !ok {
				metrics.CacheLookups.WithLabelValues("miss").Inc()
				continue
			}
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			p.result = r
			p.resolved = true
		}
	}
}

// lookupAll queries the provider for every pair with bounded concurrency.
func (a *Adapter) lookupAll(ctx context.Context, pairs []*pair) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for _, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return a.lookup(gctx, p)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// lookup asks the provider for one pair. Successful answers are cached right
// away; failures fall back to the straight-line estimate and are not cached.
func (a *Adapter) lookup(ctx context.Context, p *pair) error {
	r, err := a.provider.GetDistance(ctx, p.from, p.to)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err == nil && r.Reachable && !validResult(r) {
		err = fmt.Errorf("provider returned invalid metrics: meters=%v seconds=%v", r.DistanceMeters, r.DurationSeconds)
	}

	if err != nil {
		metrics.ProviderLookups.WithLabelValues("error").Inc()
		metrics.FallbackPairs.Inc()
		meters := greatCircleMeters(p.from, p.to)
		obs.Logger(ctx).WithError(err).WithFields(log.Fields{
			"origin":      p.originKey(),
			"destination": p.destKey(),
		}).Warn("distance provider failed; using straight-line estimate")

		p.result = ports.DistanceResult{
			DistanceMeters:  meters,
			DurationSeconds: durationSeconds(meters, a.opts.FallbackSpeedKph),
			Reachable:       true,
		}
		p.degraded = true
		p.resolved = true
		return nil
	}

	if r.Reachable {
		metrics.ProviderLookups.WithLabelValues("ok").Inc()
	} else {
		metrics.ProviderLookups.WithLabelValues("unreachable").Inc()
	}
	p.result = r
	p.resolved = true

	if a.cache != nil {
		if err := a.cache.PutMany(ctx, p.originKey(), map[string]ports.DistanceResult{p.destKey(): r}); err != nil {
			obs.Logger(ctx).WithError(err).Warn("distance cache write failed")
		}
	}
	return nil
}

func (a *Adapter) fill(m *domain.CostMatrix, p *pair) error {
	reachable := p.result.Reachable
	cost := 0.0
	if reachable {
		cost = a.cost(p.result)
	}

	if err := m.Set(p.i, p.j, cost, reachable, p.degraded); err != nil {
		return err
	}
	if a.opts.AssumeSymmetric {
		return m.Set(p.j, p.i, cost, reachable, p.degraded)
	}
	return nil
}

func (a *Adapter) cost(r ports.DistanceResult) float64 {
	if a.opts.Metric == MetricDuration {
		return r.DurationSeconds
	}
	return r.DistanceMeters
}

func validResult(r ports.DistanceResult) bool {
	for _, v := range []float64{r.DistanceMeters, r.DurationSeconds} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

func validateNode(n domain.Node) error {
	if n.ID == "" {
		return &domain.InvalidInputError{Field: "node.id", Reason: "must not be empty"}
	}
	if !n.Coordinates.Valid() {
		return &domain.InvalidInputError{
			Field:  "node " + n.ID,
			Reason: fmt.Sprintf("invalid coordinates lat=%v lon=%v", n.Coordinates.Lat, n.Coordinates.Lon),
		}
	}
	return nil
}
