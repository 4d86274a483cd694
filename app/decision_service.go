// Package app wires the domain decision engine to storage and randomness
// ports. Services here own orchestration and persistence; all statistics
// live in the domain packages.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"launchlab/domain/core"
	"launchlab/domain/decision"
	"launchlab/domain/metrics"
	"launchlab/internal"
	"launchlab/ports"
)

// rngOperation names the simulation stream so other future streams for the
// same run cannot collide with it.
const rngOperation = "decision_analysis"

// DecisionService orchestrates experiment analysis: it validates raw
// counters, runs the decision engine under a deterministic seed, and
// persists the result as a draft decision.
type DecisionService struct {
	repo    ports.DecisionRepository
	rngPort ports.RNGPort
	logger  *internal.Logger

	// baseConfig carries the deployment's engine tuning (simulations,
	// priors); per-request payloads refine thresholds on top of it.
	baseConfig decision.Config
	baseSeed   int64
}

// AnalyzeRequest carries one analysis invocation.
type AnalyzeRequest struct {
	RunID  core.RunID      `json:"run_id"`
	Counts []VariantCounts `json:"counts"`
	// Config overrides; missing or malformed fields fall back to defaults.
	Config json.RawMessage `json:"config,omitempty"`
	// Seed overrides the service base seed when non-zero.
	Seed int64 `json:"seed,omitempty"`
}

// VariantCounts is the raw per-arm counter input from the aggregation
// pipeline.
type VariantCounts struct {
	VariantID   core.VariantID `json:"variant_id"`
	Clicks      int            `json:"clicks"`
	Conversions int            `json:"conversions"`
}

// AnalyzeResult pairs the persisted decision with timing for callers that
// report on it.
type AnalyzeResult struct {
	Decision  *decision.Decision
	RuntimeMs int64
}

// NewDecisionService creates a decision service
func NewDecisionService(repo ports.DecisionRepository, rngPort ports.RNGPort, logger *internal.Logger, baseConfig decision.Config, baseSeed int64) *DecisionService {
	return &DecisionService{
		repo:       repo,
		rngPort:    rngPort,
		logger:     logger,
		baseConfig: baseConfig,
		baseSeed:   baseSeed,
	}
}

// Analyze runs the full decision engine over a variant set and stores the
// outcome as a new draft decision for the run. A run that already has a
// final decision cannot be analyzed again.
func (s *DecisionService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	startTime := time.Now()

	if req.RunID.String() == "" {
		return nil, fmt.Errorf("run ID is required")
	}

	hasFinal, err := s.repo.HasFinalDecision(ctx, req.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to check final decision: %w", err)
	}
	if hasFinal {
		return nil, core.ErrDecisionFinalized
	}

	analysis, err := s.computeAnalysis(ctx, req)
	if err != nil {
		return nil, err
	}

	now := core.Now()
	d := &decision.Decision{
		ID:        core.DecisionID(core.NewID()),
		RunID:     req.RunID,
		Status:    decision.StatusDraft,
		Analysis:  *analysis,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateDecision(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to store decision: %w", err)
	}

	runtimeMs := time.Since(startTime).Milliseconds()
	s.logger.Info("analyzed run %s: confidence=%s recommendation=%s winner=%s (%d variants, %dms)",
		req.RunID, analysis.Confidence, analysis.Recommendation, winnerLabel(analysis.WinnerID), len(req.Counts), runtimeMs)

	return &AnalyzeResult{Decision: d, RuntimeMs: runtimeMs}, nil
}

// Quick runs the classifier without persisting anything. Used by
// dashboards that poll running experiments.
func (s *DecisionService) Quick(ctx context.Context, req AnalyzeRequest) (*decision.QuickResult, error) {
	variants, err := buildVariants(req.Counts)
	if err != nil {
		return nil, err
	}

	cfg := decision.ParseConfigFrom(s.baseConfig, req.Config)
	src, err := s.rngPort.Stream(ctx, req.RunID.String(), rngOperation, s.seed(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create random stream: %w", err)
	}

	result := decision.QuickAnalysis(variants, cfg, src)
	return &result, nil
}

// Replay recomputes a stored decision from the same inputs and compares
// fingerprints. The request seed must match the stored one; a fingerprint
// divergence under matching inputs means the engine is no longer
// deterministic.
func (s *DecisionService) Replay(ctx context.Context, decisionID core.DecisionID, req AnalyzeRequest) (*decision.Analysis, error) {
	stored, err := s.repo.GetDecision(ctx, decisionID)
	if err != nil {
		return nil, err
	}

	if req.Seed != 0 && req.Seed != stored.Analysis.Seed {
		return nil, core.ErrSeedMismatch
	}
	req.RunID = stored.RunID
	req.Seed = stored.Analysis.Seed

	replayed, err := s.computeAnalysis(ctx, req)
	if err != nil {
		return nil, err
	}

	if !replayed.Fingerprint.Equals(stored.Analysis.Fingerprint) {
		s.logger.Error("replay fingerprint mismatch for decision %s: stored=%s replayed=%s",
			decisionID, stored.Analysis.Fingerprint, replayed.Fingerprint)
		return nil, core.ErrNonDeterministic
	}
	return replayed, nil
}

// GetDecision retrieves a decision by id
func (s *DecisionService) GetDecision(ctx context.Context, id core.DecisionID) (*decision.Decision, error) {
	return s.repo.GetDecision(ctx, id)
}

// UpdateDecision replaces a draft decision's analysis. Finalized decisions
// cannot be updated.
func (s *DecisionService) UpdateDecision(ctx context.Context, d *decision.Decision) error {
	return s.repo.UpdateDecision(ctx, d)
}

// GetLatestDecision returns the most recent decision for a run
func (s *DecisionService) GetLatestDecision(ctx context.Context, runID core.RunID) (*decision.Decision, error) {
	return s.repo.GetLatestDecision(ctx, runID)
}

// GetFinalDecision returns the finalized decision for a run, if any
func (s *DecisionService) GetFinalDecision(ctx context.Context, runID core.RunID) (*decision.Decision, error) {
	return s.repo.GetFinalDecision(ctx, runID)
}

// GetDecisionHistory returns a run's decisions, newest first
func (s *DecisionService) GetDecisionHistory(ctx context.Context, runID core.RunID, limit int) ([]*decision.Decision, error) {
	return s.repo.GetDecisionHistory(ctx, runID, limit)
}

// Finalize marks a draft decision final. Finalization is write-once per
// decision and per run.
func (s *DecisionService) Finalize(ctx context.Context, id core.DecisionID) (*decision.Decision, error) {
	d, err := s.repo.FinalizeDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("finalized decision %s for run %s: %s", d.ID, d.RunID, d.Analysis.Recommendation)
	return d, nil
}

// computeAnalysis runs the engine over validated inputs and assembles the
// immutable Analysis record, fingerprint last.
func (s *DecisionService) computeAnalysis(ctx context.Context, req AnalyzeRequest) (*decision.Analysis, error) {
	variants, err := buildVariants(req.Counts)
	if err != nil {
		return nil, err
	}

	cfg := decision.ParseConfigFrom(s.baseConfig, req.Config)
	seed := s.seed(req)

	src, err := s.rngPort.Stream(ctx, req.RunID.String(), rngOperation, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create random stream: %w", err)
	}

	verdict := decision.EvaluateConfidence(variants, cfg, src)
	agg := metrics.Aggregate(variants)

	analysis := &decision.Analysis{
		RunID:                   req.RunID,
		Confidence:              verdict.Confidence,
		WinnerID:                verdict.WinnerID,
		WinnerInfo:              buildWinnerInfo(verdict),
		Ranking:                 externalRanking(verdict.Ranking),
		Stats:                   decision.ComputeStatsSummary(variants),
		Aggregate:               agg,
		Rationale:               verdict.Rationale,
		Recommendation:          verdict.Recommendation,
		AdditionalSamplesNeeded: decision.AdditionalSamplesNeeded(agg, cfg.Samples),
		Seed:                    seed,
		AnalyzedAt:              core.Now(),
	}
	analysis.Fingerprint = fingerprintAnalysis(req, cfg, seed, analysis)
	return analysis, nil
}

// fingerprintAnalysis hashes the inputs plus the verdict. The timestamp is
// excluded so replays of identical inputs reproduce the fingerprint.
func fingerprintAnalysis(req AnalyzeRequest, cfg decision.Config, seed int64, analysis *decision.Analysis) core.Hash {
	return core.Fingerprint(struct {
		RunID          core.RunID              `json:"run_id"`
		Counts         []VariantCounts         `json:"counts"`
		Config         decision.Config         `json:"config"`
		Seed           int64                   `json:"seed"`
		Confidence     decision.Tier           `json:"confidence"`
		WinnerID       *core.VariantID         `json:"winner_id"`
		Ranking        []decision.RankingEntry `json:"ranking"`
		Recommendation decision.Recommendation `json:"recommendation"`
	}{
		RunID:          req.RunID,
		Counts:         req.Counts,
		Config:         cfg,
		Seed:           seed,
		Confidence:     analysis.Confidence,
		WinnerID:       analysis.WinnerID,
		Ranking:        analysis.Ranking,
		Recommendation: analysis.Recommendation,
	})
}

func (s *DecisionService) seed(req AnalyzeRequest) int64 {
	if req.Seed != 0 {
		return req.Seed
	}
	return s.baseSeed
}

func buildVariants(counts []VariantCounts) ([]metrics.VariantMetrics, error) {
	variants := make([]metrics.VariantMetrics, 0, len(counts))
	seen := make(map[core.VariantID]bool, len(counts))
	for _, c := range counts {
		if c.VariantID == "" {
			return nil, core.NewInvalidMetricsError("", "variant ID is required")
		}
		if seen[c.VariantID] {
			return nil, core.NewInvalidMetricsError(c.VariantID.String(), "duplicate variant ID")
		}
		seen[c.VariantID] = true

		v, err := metrics.New(c.VariantID, c.Clicks, c.Conversions)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// externalRanking re-sorts the domain ranking into the externally visible
// order: win probability descending, ties broken by CVR then variant ID,
// ranks renumbered to stay contiguous.
func externalRanking(entries []decision.RankingEntry) []decision.RankingEntry {
	ranked := make([]decision.RankingEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].BayesianWinProbability != ranked[j].BayesianWinProbability {
			return ranked[i].BayesianWinProbability > ranked[j].BayesianWinProbability
		}
		if ranked[i].Metrics.CVR != ranked[j].Metrics.CVR {
			return ranked[i].Metrics.CVR > ranked[j].Metrics.CVR
		}
		return ranked[i].VariantID < ranked[j].VariantID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func buildWinnerInfo(verdict decision.ConfidenceDecision) *decision.WinnerInfo {
	if verdict.WinnerID == nil {
		return nil
	}
	for _, entry := range verdict.Ranking {
		if entry.VariantID == *verdict.WinnerID {
			return &decision.WinnerInfo{
				VariantID:      entry.VariantID,
				Clicks:         entry.Metrics.Clicks,
				Conversions:    entry.Metrics.Conversions,
				CVR:            entry.Metrics.CVR,
				WinProbability: entry.BayesianWinProbability,
			}
		}
	}
	return nil
}

func winnerLabel(id *core.VariantID) string {
	if id == nil {
		return "none"
	}
	return id.String()
}
