package ports

import (
	"context"

	"goviper/domain/expression"
)

// MatrixReader loads a genes × samples expression matrix from a file
type MatrixReader interface {
	ReadMatrix(ctx context.Context, path string) (*expression.Matrix, error)
}
