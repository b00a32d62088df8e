package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream derives an independent deterministic stream for one stage of a run,
	// e.g. bootstrap resampling or null-model permutation
	Stream(ctx context.Context, runID, stageName string, baseSeed int64) (*rand.Rand, error)

	// ValidateSeed checks that a seed reproduces the expected leading draws
	ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error
}
