package ports

import (
	"context"

	"launchlab/domain/core"
	"launchlab/domain/decision"
)

// DecisionRepository defines the persistence operations for decision records.
// Implementations must enforce write-once finality: updating or re-finalizing
// a decision already marked final returns core.ErrDecisionFinalized.
type DecisionRepository interface {
	// CreateDecision stores a new draft decision for a run
	CreateDecision(ctx context.Context, d *decision.Decision) error

	// UpdateDecision replaces the analysis of an existing draft decision
	UpdateDecision(ctx context.Context, d *decision.Decision) error

	// GetDecision retrieves a decision by id
	GetDecision(ctx context.Context, id core.DecisionID) (*decision.Decision, error)

	// GetLatestDecision returns the most recent decision for a run
	GetLatestDecision(ctx context.Context, runID core.RunID) (*decision.Decision, error)

	// GetFinalDecision returns the finalized decision for a run, if any
	GetFinalDecision(ctx context.Context, runID core.RunID) (*decision.Decision, error)

	// FinalizeDecision marks a draft decision final; final is write-once
	FinalizeDecision(ctx context.Context, id core.DecisionID) (*decision.Decision, error)

	// HasFinalDecision reports whether a run already has a finalized decision
	HasFinalDecision(ctx context.Context, runID core.RunID) (bool, error)

	// GetDecisionHistory returns a run's decisions, newest first
	GetDecisionHistory(ctx context.Context, runID core.RunID, limit int) ([]*decision.Decision, error)
}
