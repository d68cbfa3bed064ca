package services

import (
	"delivery-planner/internal/domain"
	"delivery-planner/internal/platform/metrics"
	"errors"
	"fmt"
	"math"
	"slices"
)

// SolverOptions bounds the 2-opt improvement phase.
type SolverOptions struct {
	// MaxIterations caps full 2-opt passes over the tour.
	MaxIterations int
	// Eps is the minimum cost reduction for a move to count as an improvement.
	Eps float64
}

func DefaultSolverOptions() SolverOptions {
	return SolverOptions{MaxIterations: 1000, Eps: 1e-9}
}

// SolveTour builds a closed tour over nodeIndices that starts and ends at
// depotIndex: nearest-neighbor construction from the depot (ties go to the
// lowest index) followed by 2-opt local search. Unreachable pairs are never
// used. If construction cannot close a tour the error is an
// *domain.UnreachableError naming the blocking nodes.
func SolveTour(
	nodeIndices []int,
	m *domain.CostMatrix,
	depotIndex int,
	opts SolverOptions,
) (*domain.Route, error) {
	destinations, err := validateTourInput(nodeIndices, m, depotIndex, opts)
	if err != nil {
		return nil, err
	}

	if err := checkIsolated(destinations, m, depotIndex); err != nil {
		return nil, err
	}

	tour, err := nearestNeighborTour(destinations, m, depotIndex)
	if err != nil {
		return nil, err
	}

	constructionCost := tourCost(tour, m)
	route := &domain.Route{
		ConstructionCost: constructionCost,
		LocallyOptimal:   true,
	}

	// depot -> destination -> depot has nothing to exchange.
	if len(destinations) > 1 {
		res := twoOpt(tour, m, m.IsSymmetric(opts.Eps), opts)
		route.Iterations = res.passes
		route.LocallyOptimal = res.locallyOptimal
		metrics.TwoOptImprovements.Add(float64(res.improvements))
	}

	route.Stops = tour
	route.TotalCost = tourCost(tour, m)
	route.NodeIDs = make([]string, len(tour))
	for i, idx := range tour {
		route.NodeIDs[i] = m.ID(idx)
	}

	return route, nil
}

// validateTourInput returns the destinations of nodeIndices in ascending index order.
func validateTourInput(nodeIndices []int, m *domain.CostMatrix, depotIndex int, opts SolverOptions) ([]int, error) {
	if m == nil {
		return nil, errors.New("solve tour: cost matrix is nil")
	}
	if opts.MaxIterations <= 0 {
		return nil, &domain.InvalidInputError{Field: "max_iterations", Reason: "must be positive"}
	}

	n := m.Size()
	seen := make(map[int]struct{}, len(nodeIndices))
	destinations := make([]int, 0, len(nodeIndices))
	hasDepot := false

	for _, idx := range nodeIndices {
		if idx < 0 || idx >= n {
			return nil, &domain.InvalidInputError{Field: "node_indices", Reason: fmt.Sprintf("index %d out of range for matrix size %d", idx, n)}
		}
		if _, ok := seen[idx]; ok {
			return nil, &domain.InvalidInputError{Field: "node_indices", Reason: fmt.Sprintf("duplicate index %d", idx)}
		}
		seen[idx] = struct{}{}

		if idx == depotIndex {
			hasDepot = true
			continue
		}
		destinations = append(destinations, idx)
	}

	if !hasDepot {
		return nil, &domain.InvalidInputError{Field: "depot_index", Reason: fmt.Sprintf("depot %d is not part of the node set", depotIndex)}
	}
	if len(destinations) == 0 {
		return nil, &domain.InvalidInputError{Field: "node_indices", Reason: "at least one destination is required"}
	}

	slices.Sort(destinations)
	return destinations, nil
}

// checkIsolated reports destinations that have no reachable edge in or no
// reachable edge out within the node set. No closed tour can include them.
func checkIsolated(destinations []int, m *domain.CostMatrix, depotIndex int) error {
	nodes := append([]int{depotIndex}, destinations...)

	var blocked []string
	for _, d := range destinations {
		in, out := false, false
		for _, u := range nodes {
			if u == d {
				continue
			}
			in = in || m.Reachable(u, d)
			out = out || m.Reachable(d, u)
		}
		if !in || !out {
			blocked = append(blocked, m.ID(d))
		}
	}

	if len(blocked) > 0 {
		return &domain.UnreachableError{NodeIDs: blocked, Reason: "no reachable edge to or from the rest of the route"}
	}
	return nil
}

// nearestNeighborTour extends the tour from the depot by the cheapest
// reachable unvisited destination and closes it back to the depot.
func nearestNeighborTour(destinations []int, m *domain.CostMatrix, depotIndex int) ([]int, error) {
	tour := make([]int, 0, len(destinations)+2)
	tour = append(tour, depotIndex)

	visited := make(map[int]bool, len(destinations))
	current := depotIndex

	for len(tour) <= len(destinations) {
		next := -1
		best := math.Inf(1)
		// destinations is sorted, so strict < keeps the lowest index on ties.
		for _, d := range destinations {
			if visited[d] || !m.Reachable(current, d) {
				continue
			}
			if c := m.Cost(current, d); c < best {
				next, best = d, c
			}
		}

		if next < 0 {
			remaining := make([]string, 0, len(destinations))
			for _, d := range destinations {
				if !visited[d] {
					remaining = append(remaining, m.ID(d))
				}
			}
			return nil, &domain.UnreachableError{
				NodeIDs: remaining,
				Reason:  fmt.Sprintf("no reachable continuation from %s", m.ID(current)),
			}
		}

		visited[next] = true
		tour = append(tour, next)
		current = next
	}

	if !m.Reachable(current, depotIndex) {
		return nil, &domain.UnreachableError{
			NodeIDs: []string{m.ID(current)},
			Reason:  fmt.Sprintf("cannot return to depot %s", m.ID(depotIndex)),
		}
	}

	return append(tour, depotIndex), nil
}

// tourCost sums consecutive edges of a closed tour, stabilised to 1e-9.
func tourCost(tour []int, m *domain.CostMatrix) float64 {
	total := 0.0
	for i := 0; i+1 < len(tour); i++ {
		total += m.Cost(tour[i], tour[i+1])
	}
	return round1e9(total)
}

func round1e9(x float64) float64 {
	return math.Round(x*1e9) / 1e9
}
