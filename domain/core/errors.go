package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural errors abort a run
	ErrInputShape     = errors.New("input shape mismatch")
	ErrDuplicateGene  = fmt.Errorf("%w: duplicate gene identifier", ErrInputShape)
	ErrNoSamples      = fmt.Errorf("%w: signature has no samples", ErrInputShape)
	ErrNoGeneOverlap  = fmt.Errorf("%w: no overlap between signature genes and regulon targets", ErrInputShape)
	ErrRegulonSize    = errors.New("regulon size below minimum")
	ErrInvalidRegulon = errors.New("invalid regulon")

	// Statistical edge cases
	ErrDegenerateDistribution = errors.New("degenerate distribution")
	ErrConstantColumn         = fmt.Errorf("%w: constant column", ErrDegenerateDistribution)
	ErrSingleValuedNull       = fmt.Errorf("%w: single-valued null sample set", ErrDegenerateDistribution)

	// Recoverable conditions, resolved locally with a warning
	ErrNullModelInsufficient = errors.New("insufficient samples for permutation null model")
	ErrConflictingOptions    = errors.New("conflicting options")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
)

// Error constructors with context
func NewInputShapeError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInputShape, fmt.Sprintf(format, args...))
}

func NewRegulonError(regulator string, reason string) error {
	return fmt.Errorf("%w %s: %s", ErrInvalidRegulon, regulator, reason)
}

func NewConstantColumnError(column int) error {
	return fmt.Errorf("%w at index %d", ErrConstantColumn, column)
}

func NewDegenerateError(subject string, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrDegenerateDistribution, subject, reason)
}

// Error checking helpers
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrInputShape) ||
		errors.Is(err, ErrRegulonSize) ||
		errors.Is(err, ErrInvalidRegulon)
}

func IsDegenerateError(err error) bool {
	return errors.Is(err, ErrDegenerateDistribution)
}

func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNullModelInsufficient) ||
		errors.Is(err, ErrConflictingOptions)
}
