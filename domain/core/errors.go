package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrDecisionNotFound = fmt.Errorf("%w: decision", ErrNotFound)
	ErrRunNotFound      = fmt.Errorf("%w: run", ErrNotFound)
	ErrVariantNotFound  = fmt.Errorf("%w: variant", ErrNotFound)

	// Validation errors
	ErrInvalidMetrics   = errors.New("invalid variant metrics")
	ErrInvalidConfig    = errors.New("invalid decision config")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Lifecycle errors
	ErrDecisionFinalized = errors.New("decision already finalized")
	ErrNoFinalDecision   = errors.New("no finalized decision")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
	ErrSeedMismatch     = errors.New("seed mismatch")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewInvalidMetricsError(variantID string, reason string) error {
	return fmt.Errorf("%w: variant %s: %s", ErrInvalidMetrics, variantID, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidMetrics) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInsufficientData)
}

func IsFinalizedError(err error) bool {
	return errors.Is(err, ErrDecisionFinalized)
}
