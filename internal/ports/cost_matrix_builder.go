package ports

import (
	"context"
	"delivery-planner/internal/domain"
)

// Builds the pairwise cost matrix for a planning run.
type CostMatrixBuilder interface {
	// Return a matrix indexed in the order of nodes.
	BuildMatrix(ctx context.Context, nodes []domain.Node) (*domain.CostMatrix, error)
}
