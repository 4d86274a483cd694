// Package rng provides the production seeded random source adapter.
package rng

import (
	"context"

	"launchlab/ports"

	"golang.org/x/exp/rand"
)

// Adapter implements ports.RNGPort with explicit seeded sources.
type Adapter struct{}

// NewAdapter creates a new RNG adapter
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Stream creates a deterministic source scoped to a run and operation.
// The same run/operation/seed combination always yields an identical stream.
func (a *Adapter) Stream(ctx context.Context, runID, operation string, baseSeed int64) (rand.Source, error) {
	seed := mixSeed(uint64(baseSeed), runID)
	seed = mixSeed(seed, operation)
	return rand.NewSource(seed), nil
}

// mixSeed folds a string into a seed deterministically (djb2).
func mixSeed(seed uint64, s string) uint64 {
	var hash uint64 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	return seed + hash
}

var _ ports.RNGPort = (*Adapter)(nil)
