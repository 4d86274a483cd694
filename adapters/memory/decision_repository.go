// Package memory provides an in-memory decision repository for tests and
// one-shot CLI analysis where no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"launchlab/domain/core"
	"launchlab/domain/decision"
	"launchlab/ports"
)

// DecisionRepository is a thread-safe in-memory ports.DecisionRepository.
// It enforces the same write-once finality semantics as the PostgreSQL
// adapter.
type DecisionRepository struct {
	mu        sync.RWMutex
	decisions map[core.DecisionID]*decision.Decision
}

// NewDecisionRepository creates an empty in-memory repository
func NewDecisionRepository() *DecisionRepository {
	return &DecisionRepository{
		decisions: make(map[core.DecisionID]*decision.Decision),
	}
}

// CreateDecision stores a new draft decision for a run
func (r *DecisionRepository) CreateDecision(ctx context.Context, d *decision.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *d
	r.decisions[d.ID] = &stored
	return nil
}

// UpdateDecision replaces the analysis of an existing draft decision
func (r *DecisionRepository) UpdateDecision(ctx context.Context, d *decision.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.decisions[d.ID]
	if !ok {
		return core.ErrDecisionNotFound
	}
	if existing.IsFinal() {
		return core.ErrDecisionFinalized
	}

	updated := *d
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = core.Now()
	r.decisions[d.ID] = &updated
	return nil
}

// GetDecision retrieves a decision by id
func (r *DecisionRepository) GetDecision(ctx context.Context, id core.DecisionID) (*decision.Decision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.decisions[id]
	if !ok {
		return nil, core.ErrDecisionNotFound
	}
	copied := *d
	return &copied, nil
}

// GetLatestDecision returns the most recent decision for a run
func (r *DecisionRepository) GetLatestDecision(ctx context.Context, runID core.RunID) (*decision.Decision, error) {
	history, err := r.GetDecisionHistory(ctx, runID, 1)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, core.ErrDecisionNotFound
	}
	return history[0], nil
}

// GetFinalDecision returns the finalized decision for a run, if any
func (r *DecisionRepository) GetFinalDecision(ctx context.Context, runID core.RunID) (*decision.Decision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.decisions {
		if d.RunID == runID && d.IsFinal() {
			copied := *d
			return &copied, nil
		}
	}
	return nil, core.ErrNoFinalDecision
}

// FinalizeDecision marks a draft decision final; final is write-once
func (r *DecisionRepository) FinalizeDecision(ctx context.Context, id core.DecisionID) (*decision.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.decisions[id]
	if !ok {
		return nil, core.ErrDecisionNotFound
	}
	if d.IsFinal() {
		return nil, core.ErrDecisionFinalized
	}
	for _, other := range r.decisions {
		if other.RunID == d.RunID && other.IsFinal() {
			return nil, core.ErrDecisionFinalized
		}
	}

	now := core.Now()
	d.Status = decision.StatusFinal
	d.FinalizedAt = &now
	d.UpdatedAt = now

	copied := *d
	return &copied, nil
}

// HasFinalDecision reports whether a run already has a finalized decision
func (r *DecisionRepository) HasFinalDecision(ctx context.Context, runID core.RunID) (bool, error) {
	_, err := r.GetFinalDecision(ctx, runID)
	if err == core.ErrNoFinalDecision {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetDecisionHistory returns a run's decisions, newest first
func (r *DecisionRepository) GetDecisionHistory(ctx context.Context, runID core.RunID, limit int) ([]*decision.Decision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var history []*decision.Decision
	for _, d := range r.decisions {
		if d.RunID == runID {
			copied := *d
			history = append(history, &copied)
		}
	}

	sort.Slice(history, func(i, j int) bool {
		return history[j].CreatedAt.Before(history[i].CreatedAt)
	})

	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

var _ ports.DecisionRepository = (*DecisionRepository)(nil)
