package services

import (
	"context"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/platform/metrics"
	"delivery-planner/internal/platform/obs"
	"delivery-planner/internal/ports"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type PlanRequest struct {
	Depot     domain.Node
	Capacity  float64
	Shipments []domain.Shipment
}

type PlannerOptions struct {
	Packing           PackingStrategy
	Solver            SolverOptions
	SolverConcurrency int
	// Metric labels the unit of every cost in the result ("distance" or "duration").
	Metric string
}

func DefaultPlannerOptions() PlannerOptions {
	return PlannerOptions{
		Packing:           BestFit,
		Solver:            DefaultSolverOptions(),
		SolverConcurrency: 4,
		Metric:            "distance",
	}
}

// Planner runs the delivery planning pipeline: validate, pack loads, build
// the cost matrix, then solve one tour per vehicle.
type Planner struct {
	matrices ports.CostMatrixBuilder
	opts     PlannerOptions
}

func NewPlanner(matrices ports.CostMatrixBuilder, opts PlannerOptions) (*Planner, error) {
	if matrices == nil {
		return nil, errors.New("new planner: cost matrix builder is nil")
	}
	if opts.SolverConcurrency <= 0 {
		return nil, errors.New("new planner: solver concurrency must be positive")
	}
	if opts.Solver.MaxIterations <= 0 {
		return nil, errors.New("new planner: solver max iterations must be positive")
	}
	return &Planner{matrices: matrices, opts: opts}, nil
}

// Plan returns a PlanResult or a single top-level error.
//
// Invalid input and cancellation fail the whole plan. A vehicle whose tour
// cannot be closed keeps its error in VehicleGroup.Err while the other
// vehicles are still routed. Degraded matrix entries and 2-opt runs stopped
// by the iteration cap are reported as warnings.
func (p *Planner) Plan(ctx context.Context, req PlanRequest) (_ *domain.PlanResult, err error) {
	runID := uuid.NewString()
	if obs.RequestID(ctx) == "" {
		ctx = obs.WithRequestID(ctx, runID)
	}
	defer obs.Time(ctx, "plan.Plan")(&err)

	logger := obs.Logger(ctx).WithField("run_id", runID)

	nodes, err := planNodes(req)
	if err != nil {
		metrics.Plans.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("plan deliveries: %w", err)
	}

	// Packing does not need costs, so bad loads are rejected before any provider call.
	vehicles, err := PackLoads(req.Shipments, req.Capacity, p.opts.Packing)
	if err != nil {
		metrics.Plans.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("plan deliveries: pack loads: %w", err)
	}

	m, err := p.matrices.BuildMatrix(ctx, nodes)
	if err != nil {
		return nil, fmt.Errorf("plan deliveries: build cost matrix: %w", err)
	}

	warnings, err := p.solveAll(ctx, vehicles, m)
	if err != nil {
		return nil, fmt.Errorf("plan deliveries: %w", err)
	}

	result := &domain.PlanResult{
		RunID:    runID,
		Metric:   p.opts.Metric,
		Vehicles: vehicles,
	}

	if n := m.DegradedPairs(); n > 0 {
		result.Warnings = append(result.Warnings, domain.Warning{
			Kind:   domain.WarningProviderDegraded,
			Detail: fmt.Sprintf("%d matrix entries use straight-line estimates", n),
		})
	}
	result.Warnings = append(result.Warnings, warnings...)

	for _, v := range vehicles {
		if v.Err == nil && v.Route != nil {
			result.TotalCost += v.Route.TotalCost
		}
	}
	result.TotalCost = round1e9(result.TotalCost)

	status := result.Status()
	metrics.Plans.WithLabelValues(string(status)).Inc()
	logger.WithFields(log.Fields{
		"status":     status,
		"vehicles":   len(vehicles),
		"failed":     result.Failed(),
		"warnings":   len(result.Warnings),
		"total_cost": result.TotalCost,
	}).Info("plan completed")

	return result, nil
}

// solveAll routes every vehicle concurrently on its own sub-matrix. Only
// cancellation is returned as an error; per-vehicle failures land on the vehicle.
func (p *Planner) solveAll(ctx context.Context, vehicles []*domain.VehicleGroup, m *domain.CostMatrix) ([]domain.Warning, error) {
	perVehicle := make([][]domain.Warning, len(vehicles))

	var g errgroup.Group
	g.SetLimit(p.opts.SolverConcurrency)

	for i, v := range vehicles {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perVehicle[i] = p.solveVehicle(ctx, v, m)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var warnings []domain.Warning
	for _, w := range perVehicle {
		warnings = append(warnings, w...)
	}
	return warnings, nil
}

func (p *Planner) solveVehicle(ctx context.Context, v *domain.VehicleGroup, m *domain.CostMatrix) []domain.Warning {
	logger := obs.Logger(ctx).WithField("vehicle", v.VehicleNumber)

	// Local index k of sub is global index global[k]; the depot is local 0.
	global := []int{0}
	for _, id := range v.DestinationIDs() {
		gi, ok := m.IndexOf(id)
		if !ok {
			v.Err = fmt.Errorf("vehicle %d: destination %q missing from cost matrix", v.VehicleNumber, id)
			return nil
		}
		global = append(global, gi)
	}
	// Keep run order so solver ties go to the lowest node index, not the packing order.
	slices.Sort(global[1:])

	sub, err := m.Sub(global)
	if err != nil {
		v.Err = fmt.Errorf("vehicle %d: %w", v.VehicleNumber, err)
		return nil
	}

	local := make([]int, len(global))
	for k := range local {
		local[k] = k
	}

	route, err := SolveTour(local, sub, 0, p.opts.Solver)
	if err != nil {
		v.Err = fmt.Errorf("vehicle %d: %w", v.VehicleNumber, err)
		logger.WithError(err).Warn("vehicle could not be routed")
		return nil
	}

	var warnings []domain.Warning
	degraded := 0
	for i := 0; i+1 < len(route.Stops); i++ {
		if sub.Degraded(route.Stops[i], route.Stops[i+1]) {
			degraded++
		}
	}
	if degraded > 0 {
		warnings = append(warnings, domain.Warning{
			Kind:          domain.WarningProviderDegraded,
			VehicleNumber: v.VehicleNumber,
			Detail:        fmt.Sprintf("%d of %d legs use straight-line estimates", degraded, len(route.Stops)-1),
		})
	}
	if !route.LocallyOptimal {
		warnings = append(warnings, domain.Warning{
			Kind:          domain.WarningSolverNonConvergence,
			VehicleNumber: v.VehicleNumber,
			Detail:        fmt.Sprintf("2-opt stopped after %d passes; tour is heuristic, not locally optimal", route.Iterations),
		})
	}

	for k, li := range route.Stops {
		route.Stops[k] = global[li]
	}
	v.Route = route

	logger.WithFields(log.Fields{
		"stops":      len(route.Stops) - 2,
		"cost":       route.TotalCost,
		"iterations": route.Iterations,
	}).Debug("vehicle routed")

	return warnings
}

// planNodes validates the request and returns the depot followed by each
// distinct destination in first-appearance order.
func planNodes(req PlanRequest) ([]domain.Node, error) {
	if math.IsNaN(req.Capacity) || math.IsInf(req.Capacity, 0) || req.Capacity <= 0 {
		return nil, &domain.InvalidInputError{Field: "capacity", Reason: fmt.Sprintf("must be a positive number, got %v", req.Capacity)}
	}

	depot := req.Depot
	if depot.ID == "" {
		return nil, &domain.InvalidInputError{Field: "depot.id", Reason: "must not be empty"}
	}
	if !depot.Coordinates.Valid() {
		return nil, &domain.InvalidInputError{Field: "depot", Reason: "invalid coordinates"}
	}
	depot.Role = domain.RoleDepot

	if len(req.Shipments) == 0 {
		return nil, &domain.InvalidInputError{Field: "shipments", Reason: "at least one shipment is required"}
	}

	nodes := []domain.Node{depot}
	coords := make(map[string]domain.Coordinates)
	for _, s := range req.Shipments {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if s.DestinationID == depot.ID {
			return nil, &domain.InvalidInputError{
				Field:  "destination_id",
				Reason: fmt.Sprintf("destination %q collides with the depot id", s.DestinationID),
			}
		}
		if !s.Destination.Valid() {
			return nil, &domain.InvalidInputError{
				Field:  "destination",
				Reason: fmt.Sprintf("shipment %s has invalid coordinates", s.Label()),
			}
		}

		prev, seen := coords[s.DestinationID]
		if !seen {
			coords[s.DestinationID] = s.Destination
			nodes = append(nodes, domain.NewDestination(s.DestinationID, s.Destination))
			continue
		}
		if prev.Key() != s.Destination.Key() {
			return nil, &domain.InvalidInputError{
				Field:  "destination",
				Reason: fmt.Sprintf("destination %q appears with conflicting coordinates %s and %s", s.DestinationID, prev.Key(), s.Destination.Key()),
			}
		}
	}

	return nodes, nil
}
