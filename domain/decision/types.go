package decision

import (
	"launchlab/domain/core"
	"launchlab/domain/metrics"
	"launchlab/domain/stats"
)

// Tier classifies how trustworthy the current data is for decision-making.
type Tier string

const (
	TierInsufficient Tier = "insufficient"
	TierDirectional  Tier = "directional"
	TierConfident    Tier = "confident"
)

// Recommendation is the action the engine suggests to the run lifecycle.
// The classifier only ever emits continue or stop_winner; stop_no_winner
// completes the external result enum for consumers that stop runs
// manually without a declared winner.
type Recommendation string

const (
	RecommendContinue     Recommendation = "continue"
	RecommendStopWinner   Recommendation = "stop_winner"
	RecommendStopNoWinner Recommendation = "stop_no_winner"
)

// Status tracks a stored decision's lifecycle.
type Status string

const (
	StatusDraft Status = "draft"
	StatusFinal Status = "final"
)

// RankingEntry is one row of a variant ranking.
// INVARIANT: Rank values are contiguous and 1-based, matching output order.
type RankingEntry struct {
	Rank                   int                    `json:"rank"`
	VariantID              core.VariantID         `json:"variant_id"`
	Metrics                metrics.VariantMetrics `json:"metrics"`
	WilsonCI               stats.WilsonCI         `json:"wilson_ci"`
	BayesianWinProbability float64                `json:"bayesian_win_probability"`
	Score                  float64                `json:"score"`
}

// WinnerInfo describes the declared winner when the tier is confident.
type WinnerInfo struct {
	VariantID      core.VariantID `json:"variant_id"`
	Clicks         int            `json:"clicks"`
	Conversions    int            `json:"conversions"`
	CVR            float64        `json:"cvr"`
	WinProbability float64        `json:"win_probability"`
}

// StatsSummary is a descriptive summary of the observed conversion rates,
// attached to the analysis for reporting.
type StatsSummary struct {
	MeanCVR   float64 `json:"mean_cvr"`
	MedianCVR float64 `json:"median_cvr"`
	StdDevCVR float64 `json:"stddev_cvr"`
	MinCVR    float64 `json:"min_cvr"`
	MaxCVR    float64 `json:"max_cvr"`
}

// ConfidenceDecision is the classifier's verdict over a variant set.
type ConfidenceDecision struct {
	Confidence     Tier            `json:"confidence"`
	WinnerID       *core.VariantID `json:"winner_id,omitempty"`
	Ranking        []RankingEntry  `json:"ranking"`
	Rationale      string          `json:"rationale"`
	Recommendation Recommendation  `json:"recommendation"`
}

// VariantAnalysis bundles the full statistical picture of a variant set.
type VariantAnalysis struct {
	Decision         ConfidenceDecision         `json:"decision"`
	WilsonAnalysis   []stats.WilsonComparison   `json:"wilson_analysis"`
	BayesianAnalysis stats.BayesianComparison   `json:"bayesian_analysis"`
	ExpectedLoss     map[core.VariantID]float64 `json:"expected_loss"`
	Aggregate        metrics.AggregateMetrics   `json:"aggregate"`
	AnalyzedAt       core.Timestamp             `json:"analyzed_at"`
}

// QuickResult is the cheap summary shape for dashboards.
type QuickResult struct {
	WinnerID          *core.VariantID `json:"winner_id"`
	Confidence        Tier            `json:"confidence"`
	TopWinProbability float64         `json:"top_win_probability"`
}

// Analysis is the externally visible decision result. Treated as immutable
// once produced; the fingerprint covers everything above it.
type Analysis struct {
	RunID                   core.RunID               `json:"run_id"`
	Confidence              Tier                     `json:"confidence"`
	WinnerID                *core.VariantID          `json:"winner_id,omitempty"`
	WinnerInfo              *WinnerInfo              `json:"winner_info,omitempty"`
	Ranking                 []RankingEntry           `json:"ranking"`
	Stats                   StatsSummary             `json:"stats"`
	Aggregate               metrics.AggregateMetrics `json:"aggregate"`
	Rationale               string                   `json:"rationale"`
	Recommendation          Recommendation           `json:"recommendation"`
	AdditionalSamplesNeeded *int                     `json:"additional_samples_needed,omitempty"`
	Seed                    int64                    `json:"seed"`
	AnalyzedAt              core.Timestamp           `json:"analyzed_at"`
	Fingerprint             core.Hash                `json:"fingerprint"`
}

// Decision is the persisted record wrapping an Analysis. A decision is
// written as draft and may be finalized exactly once; finalized decisions
// are write-once.
type Decision struct {
	ID          core.DecisionID `json:"id" db:"id"`
	RunID       core.RunID      `json:"run_id" db:"run_id"`
	Status      Status          `json:"status" db:"status"`
	Analysis    Analysis        `json:"analysis"`
	CreatedAt   core.Timestamp  `json:"created_at" db:"created_at"`
	UpdatedAt   core.Timestamp  `json:"updated_at" db:"updated_at"`
	FinalizedAt *core.Timestamp `json:"finalized_at,omitempty" db:"finalized_at"`
}

// IsFinal reports whether the decision has been finalized.
func (d *Decision) IsFinal() bool {
	return d.Status == StatusFinal
}
