package domain

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Unreachable is the cost sentinel for pairs that must never be traversed.
var Unreachable = math.Inf(1)

// CostMatrix holds pairwise travel costs for the nodes of one planning run.
//
// Indices are stable within a run only. The diagonal is always 0, unreachable
// pairs carry +Inf, and entries filled from a fallback estimate are flagged
// as degraded so callers can judge confidence.
type CostMatrix struct {
	ids      []string
	index    map[string]int
	costs    *mat.Dense
	degraded []bool
}

// NewCostMatrix returns an n×n matrix where every off-diagonal pair starts unreachable.
func NewCostMatrix(ids []string) (*CostMatrix, error) {
	n := len(ids)
	if n == 0 {
		return nil, errors.New("cost matrix: at least one node is required")
	}

	index := make(map[string]int, n)
	for i, id := range ids {
		if _, ok := index[id]; ok {
			return nil, fmt.Errorf("cost matrix: duplicate node id %q", id)
		}
		index[id] = i
	}

	costs := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				costs.Set(i, j, Unreachable)
			}
		}
	}

	return &CostMatrix{
		ids:      append([]string(nil), ids...),
		index:    index,
		costs:    costs,
		degraded: make([]bool, n*n),
	}, nil
}

func (m *CostMatrix) Size() int { return len(m.ids) }

func (m *CostMatrix) ID(i int) string { return m.ids[i] }

func (m *CostMatrix) IDs() []string { return append([]string(nil), m.ids...) }

func (m *CostMatrix) IndexOf(id string) (int, bool) {
	i, ok := m.index[id]
	return i, ok
}

func (m *CostMatrix) Cost(i, j int) float64 { return m.costs.At(i, j) }

func (m *CostMatrix) Reachable(i, j int) bool { return !math.IsInf(m.costs.At(i, j), 1) }

func (m *CostMatrix) Degraded(i, j int) bool { return m.degraded[i*len(m.ids)+j] }

// Set stores the cost of the directed pair i->j. Writes to the diagonal are ignored.
func (m *CostMatrix) Set(i, j int, cost float64, reachable, degraded bool) error {
	n := len(m.ids)
	if i < 0 || i >= n || j < 0 || j >= n {
		return fmt.Errorf("cost matrix: index (%d,%d) out of range for size %d", i, j, n)
	}
	if i == j {
		return nil
	}
	if !reachable {
		m.costs.Set(i, j, Unreachable)
		m.degraded[i*n+j] = degraded
		return nil
	}
	if math.IsNaN(cost) || math.IsInf(cost, 0) || cost < 0 {
		return fmt.Errorf("cost matrix: invalid cost %v for (%d,%d)", cost, i, j)
	}

	m.costs.Set(i, j, cost)
	m.degraded[i*n+j] = degraded
	return nil
}

// SetUnreachable marks both directions between i and j unreachable.
func (m *CostMatrix) SetUnreachable(i, j int) error {
	if err := m.Set(i, j, 0, false, false); err != nil {
		return err
	}
	return m.Set(j, i, 0, false, false)
}

// Sub restricts the matrix to the given global indices. Local index k of the
// result corresponds to global index indices[k].
func (m *CostMatrix) Sub(indices []int) (*CostMatrix, error) {
	ids := make([]string, 0, len(indices))
	for _, gi := range indices {
		if gi < 0 || gi >= len(m.ids) {
			return nil, fmt.Errorf("cost matrix: sub index %d out of range for size %d", gi, len(m.ids))
		}
		ids = append(ids, m.ids[gi])
	}

	sub, err := NewCostMatrix(ids)
	if err != nil {
		return nil, fmt.Errorf("cost matrix sub: %w", err)
	}

	n := len(indices)
	for a, gi := range indices {
		for b, gj := range indices {
			sub.costs.Set(a, b, m.costs.At(gi, gj))
			sub.degraded[a*n+b] = m.Degraded(gi, gj)
		}
	}

	return sub, nil
}

// IsSymmetric reports whether cost(i,j) and cost(j,i) agree within tol for every pair.
func (m *CostMatrix) IsSymmetric(tol float64) bool {
	n := len(m.ids)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := m.costs.At(i, j), m.costs.At(j, i)
			if math.IsInf(a, 1) || math.IsInf(b, 1) {
				if math.IsInf(a, 1) != math.IsInf(b, 1) {
					return false
				}
				continue
			}
			if math.Abs(a-b) > tol {
				return false
			}
		}
	}
	return true
}

// DegradedPairs counts the directed pairs filled from a fallback estimate.
func (m *CostMatrix) DegradedPairs() int {
	count := 0
	for _, d := range m.degraded {
		if d {
			count++
		}
	}
	return count
}
