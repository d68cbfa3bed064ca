package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostMatrixDefaults(t *testing.T) {
	m, err := NewCostMatrix([]string{"depot", "a", "b"})
	require.NoError(t, err)

	assert.Equal(t, 3, m.Size())
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, m.Cost(i, i))
		assert.True(t, m.Reachable(i, i))
	}
	assert.False(t, m.Reachable(0, 1))
	assert.True(t, math.IsInf(m.Cost(1, 2), 1))

	idx, ok := m.IndexOf("b")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestCostMatrixRejectsDuplicatesAndBadCosts(t *testing.T) {
	_, err := NewCostMatrix([]string{"a", "a"})
	require.Error(t, err)

	_, err = NewCostMatrix(nil)
	require.Error(t, err)

	m, err := NewCostMatrix([]string{"a", "b"})
	require.NoError(t, err)
	assert.Error(t, m.Set(0, 1, -1, true, false))
	assert.Error(t, m.Set(0, 1, math.NaN(), true, false))
	assert.Error(t, m.Set(0, 5, 1, true, false))

	require.NoError(t, m.Set(0, 0, 42, true, false))
	assert.Equal(t, 0.0, m.Cost(0, 0), "diagonal stays zero")
}

func TestCostMatrixSubRemapsIndices(t *testing.T) {
	m, err := NewCostMatrix([]string{"depot", "a", "b", "c"})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			require.NoError(t, m.Set(i, j, float64(10*i+j), true, i == 3))
		}
	}

	sub, err := m.Sub([]int{0, 3, 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"depot", "c", "a"}, sub.IDs())
	assert.Equal(t, 3.0, sub.Cost(0, 1))
	assert.Equal(t, 31.0, sub.Cost(1, 2))
	assert.True(t, sub.Degraded(1, 0))
	assert.False(t, sub.Degraded(0, 1))

	_, err = m.Sub([]int{0, 9})
	assert.Error(t, err)
}

func TestCostMatrixSymmetry(t *testing.T) {
	m, err := NewCostMatrix([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, m.Set(0, 1, 5, true, false))
	require.NoError(t, m.Set(1, 0, 5, true, false))
	require.NoError(t, m.SetUnreachable(1, 2))
	require.NoError(t, m.Set(0, 2, 7, true, false))
	require.NoError(t, m.Set(2, 0, 7, true, true))

	assert.True(t, m.IsSymmetric(1e-9))
	assert.Equal(t, 1, m.DegradedPairs())

	require.NoError(t, m.Set(2, 0, 8, true, false))
	assert.False(t, m.IsSymmetric(1e-9))
}
