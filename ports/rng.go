package ports

import (
	"context"

	"golang.org/x/exp/rand"
)

// RNGPort provides seeded random number generation for deterministic
// Monte-Carlo simulation. Callers thread the returned source through the
// statistics layer instead of relying on ambient global randomness, so
// repeated analyses with the same seed and inputs are bit-identical.
type RNGPort interface {
	// Stream creates a deterministic source scoped to a run and operation.
	// The same run/operation/seed combination always yields an identical stream.
	Stream(ctx context.Context, runID, operation string, baseSeed int64) (rand.Source, error)
}
