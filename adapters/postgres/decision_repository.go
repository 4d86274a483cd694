package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"launchlab/domain/core"
	"launchlab/domain/decision"
	"launchlab/ports"

	"github.com/jmoiron/sqlx"
)

// DecisionRepositoryImpl implements DecisionRepository for PostgreSQL.
// Finality is write-once: the partial unique index on (run_id) WHERE
// status='final' backs the same guarantee at the storage level.
type DecisionRepositoryImpl struct {
	db *sqlx.DB
}

// NewDecisionRepository creates a new PostgreSQL decision repository
func NewDecisionRepository(db *sqlx.DB) ports.DecisionRepository {
	return &DecisionRepositoryImpl{db: db}
}

// CreateDecision stores a new draft decision for a run
func (r *DecisionRepositoryImpl) CreateDecision(ctx context.Context, d *decision.Decision) error {
	analysisJSON, err := json.Marshal(d.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO decisions (id, run_id, status, analysis, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		d.ID.String(), d.RunID.String(), string(d.Status), analysisJSON, d.CreatedAt.Time())
	return err
}

// UpdateDecision replaces the analysis of an existing draft decision.
// Updating a finalized decision returns core.ErrDecisionFinalized.
func (r *DecisionRepositoryImpl) UpdateDecision(ctx context.Context, d *decision.Decision) error {
	analysisJSON, err := json.Marshal(d.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE decisions
		SET analysis = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'draft'`,
		d.ID.String(), analysisJSON)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		existing, getErr := r.GetDecision(ctx, d.ID)
		if getErr != nil {
			return getErr
		}
		if existing.IsFinal() {
			return core.ErrDecisionFinalized
		}
		return core.ErrDecisionNotFound
	}
	return nil
}

// GetDecision retrieves a decision by id
func (r *DecisionRepositoryImpl) GetDecision(ctx context.Context, id core.DecisionID) (*decision.Decision, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, status, analysis, created_at, updated_at, finalized_at
		FROM decisions
		WHERE id = $1`, id.String())
	return scanDecision(row)
}

// GetLatestDecision returns the most recent decision for a run
func (r *DecisionRepositoryImpl) GetLatestDecision(ctx context.Context, runID core.RunID) (*decision.Decision, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, status, analysis, created_at, updated_at, finalized_at
		FROM decisions
		WHERE run_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, runID.String())
	return scanDecision(row)
}

// GetFinalDecision returns the finalized decision for a run, if any
func (r *DecisionRepositoryImpl) GetFinalDecision(ctx context.Context, runID core.RunID) (*decision.Decision, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, status, analysis, created_at, updated_at, finalized_at
		FROM decisions
		WHERE run_id = $1 AND status = 'final'`, runID.String())

	d, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, core.ErrDecisionNotFound) {
			return nil, core.ErrNoFinalDecision
		}
		return nil, err
	}
	return d, nil
}

// FinalizeDecision marks a draft decision final. Re-finalizing returns
// core.ErrDecisionFinalized; a run with an existing final decision cannot
// gain a second one.
func (r *DecisionRepositoryImpl) FinalizeDecision(ctx context.Context, id core.DecisionID) (*decision.Decision, error) {
	existing, err := r.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsFinal() {
		return nil, core.ErrDecisionFinalized
	}

	hasFinal, err := r.HasFinalDecision(ctx, existing.RunID)
	if err != nil {
		return nil, err
	}
	if hasFinal {
		return nil, core.ErrDecisionFinalized
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE decisions
		SET status = 'final', finalized_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'draft'`, id.String())
	if err != nil {
		return nil, err
	}

	return r.GetDecision(ctx, id)
}

// HasFinalDecision reports whether a run already has a finalized decision
func (r *DecisionRepositoryImpl) HasFinalDecision(ctx context.Context, runID core.RunID) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM decisions WHERE run_id = $1 AND status = 'final'`,
		runID.String()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetDecisionHistory returns a run's decisions, newest first
func (r *DecisionRepositoryImpl) GetDecisionHistory(ctx context.Context, runID core.RunID, limit int) ([]*decision.Decision, error) {
	query := `
		SELECT id, run_id, status, analysis, created_at, updated_at, finalized_at
		FROM decisions
		WHERE run_id = $1
		ORDER BY created_at DESC`

	args := []interface{}{runID.String()}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*decision.Decision
	for rows.Next() {
		d, err := scanDecisionRow(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row *sql.Row) (*decision.Decision, error) {
	d, err := scanDecisionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrDecisionNotFound
	}
	return d, err
}

func scanDecisionRow(row rowScanner) (*decision.Decision, error) {
	var d decision.Decision
	var id, runID, status string
	var analysisJSON []byte
	var createdAt, updatedAt time.Time
	var finalizedAt *time.Time

	if err := row.Scan(&id, &runID, &status, &analysisJSON, &createdAt, &updatedAt, &finalizedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(analysisJSON, &d.Analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}

	d.ID = core.DecisionID(id)
	d.RunID = core.RunID(runID)
	d.Status = decision.Status(status)
	d.CreatedAt = core.NewTimestamp(createdAt)
	d.UpdatedAt = core.NewTimestamp(updatedAt)
	if finalizedAt != nil {
		ts := core.NewTimestamp(*finalizedAt)
		d.FinalizedAt = &ts
	}
	return &d, nil
}
