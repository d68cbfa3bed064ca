package services

import (
	"delivery-planner/internal/domain"
	"math"
	"slices"
)

type twoOptResult struct {
	passes         int
	improvements   int
	locallyOptimal bool
}

// twoOpt improves a closed tour in place. A move reverses tour[i..k] for
// 1 <= i < k <= len(tour)-2, keeping the depot fixed at both ends. Moves are
// accepted only when they lower the cost by more than opts.Eps and never
// introduce an unreachable edge, so the tour cost is non-increasing.
func twoOpt(tour []int, m *domain.CostMatrix, symmetric bool, opts SolverOptions) twoOptResult {
	last := len(tour) - 2
	var res twoOptResult

	for res.passes < opts.MaxIterations {
		res.passes++
		improved := false

		for i := 1; i < last; i++ {
			for k := i + 1; k <= last; k++ {
				delta, ok := moveDelta(tour, m, i, k, symmetric)
				if !ok || delta >= -opts.Eps {
					continue
				}
				slices.Reverse(tour[i : k+1])
				res.improvements++
				improved = true
			}
		}

		if !improved {
			res.locallyOptimal = true
			return res
		}
	}

	// The cap stopped the search; it is still a local optimum if no move remains.
	res.locallyOptimal = !hasImprovingMove(tour, m, symmetric, opts.Eps)
	return res
}

func hasImprovingMove(tour []int, m *domain.CostMatrix, symmetric bool, eps float64) bool {
	last := len(tour) - 2
	for i := 1; i < last; i++ {
		for k := i + 1; k <= last; k++ {
			if delta, ok := moveDelta(tour, m, i, k, symmetric); ok && delta < -eps {
				return true
			}
		}
	}
	return false
}

// moveDelta returns the cost change of reversing tour[i..k]. ok is false when
// the reversed tour would use an unreachable edge.
func moveDelta(tour []int, m *domain.CostMatrix, i, k int, symmetric bool) (float64, bool) {
	a, b := tour[i-1], tour[i]
	c, d := tour[k], tour[k+1]

	if !m.Reachable(a, c) || !m.Reachable(b, d) {
		return 0, false
	}

	if symmetric {
		return m.Cost(a, c) + m.Cost(b, d) - m.Cost(a, b) - m.Cost(c, d), true
	}

	// Asymmetric costs: every edge inside the segment changes direction.
	before, after := 0.0, m.Cost(a, c)+m.Cost(b, d)
	for p := i - 1; p <= k; p++ {
		before += m.Cost(tour[p], tour[p+1])
	}
	for p := k; p > i; p-- {
		if !m.Reachable(tour[p], tour[p-1]) {
			return 0, false
		}
		after += m.Cost(tour[p], tour[p-1])
	}

	if math.IsInf(after, 1) {
		return 0, false
	}
	return after - before, true
}
