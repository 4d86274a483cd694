package app

import (
	"context"
	"math"
	"testing"

	"launchlab/adapters/memory"
	"launchlab/adapters/rng"
	"launchlab/domain/core"
	"launchlab/domain/decision"
	"launchlab/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *DecisionService {
	return newTestServiceWithConfig(decision.DefaultConfig())
}

func newTestServiceWithConfig(baseConfig decision.Config) *DecisionService {
	return NewDecisionService(
		memory.NewDecisionRepository(),
		rng.NewAdapter(),
		internal.NewLogger(internal.LogLevelError),
		baseConfig,
		42,
	)
}

func confidentRequest(runID string) AnalyzeRequest {
	return AnalyzeRequest{
		RunID: core.RunID(runID),
		Counts: []VariantCounts{
			{VariantID: "a", Clicks: 5000, Conversions: 500},
			{VariantID: "b", Clicks: 5000, Conversions: 100},
		},
	}
}

func TestAnalyzeConfidentWinner(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	result, err := svc.Analyze(ctx, confidentRequest("run-1"))
	require.NoError(t, err)

	analysis := result.Decision.Analysis
	assert.Equal(t, decision.TierConfident, analysis.Confidence)
	assert.Equal(t, decision.RecommendStopWinner, analysis.Recommendation)
	require.NotNil(t, analysis.WinnerID)
	assert.Equal(t, core.VariantID("a"), *analysis.WinnerID)
	require.NotNil(t, analysis.WinnerInfo)
	assert.Equal(t, 500, analysis.WinnerInfo.Conversions)
	assert.InDelta(t, 0.1, analysis.WinnerInfo.CVR, 1e-9)
	assert.Len(t, analysis.Ranking, 2)
	assert.Equal(t, 1, analysis.Ranking[0].Rank)
	assert.False(t, analysis.Fingerprint.IsEmpty())
	assert.Nil(t, analysis.AdditionalSamplesNeeded)

	stored, err := svc.GetLatestDecision(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, result.Decision.ID, stored.ID)
	assert.Equal(t, decision.StatusDraft, stored.Status)
}

func TestAnalyzeInsufficientSuggestsMoreSamples(t *testing.T) {
	svc := newTestService()

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{
		RunID: "run-low",
		Counts: []VariantCounts{
			{VariantID: "a", Clicks: 400, Conversions: 5},
			{VariantID: "b", Clicks: 400, Conversions: 5},
		},
	})
	require.NoError(t, err)

	analysis := result.Decision.Analysis
	assert.Equal(t, decision.TierInsufficient, analysis.Confidence)
	assert.Equal(t, decision.RecommendContinue, analysis.Recommendation)
	assert.Nil(t, analysis.WinnerID)
	require.NotNil(t, analysis.AdditionalSamplesNeeded)
	// 90 conversions short at a pooled 1.25% CVR
	assert.Equal(t, 7200, *analysis.AdditionalSamplesNeeded)
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Analyze(ctx, confidentRequest("run-det"))
	require.NoError(t, err)
	second, err := svc.Analyze(ctx, confidentRequest("run-det"))
	require.NoError(t, err)

	assert.Equal(t, first.Decision.Analysis.Fingerprint, second.Decision.Analysis.Fingerprint)
	assert.Equal(t, first.Decision.Analysis.Ranking, second.Decision.Analysis.Ranking)
}

func TestBaseConfigTunesTheEngine(t *testing.T) {
	ctx := context.Background()

	// With 100 draws, every reported win probability is a multiple of 1/100.
	tuned := decision.DefaultConfig()
	tuned.Statistics.Simulations = 100

	svc := newTestServiceWithConfig(tuned)
	result, err := svc.Analyze(ctx, AnalyzeRequest{
		RunID: "run-tuned",
		Counts: []VariantCounts{
			{VariantID: "a", Clicks: 1000, Conversions: 50},
			{VariantID: "b", Clicks: 1000, Conversions: 40},
		},
	})
	require.NoError(t, err)

	for _, entry := range result.Decision.Analysis.Ranking {
		scaled := entry.BayesianWinProbability * 100
		assert.InDelta(t, math.Round(scaled), scaled, 1e-9,
			"win probability %f is not a multiple of 1/100 draws", entry.BayesianWinProbability)
	}

	// Different priors change the posterior draws, hence the result.
	flat := newTestService()
	skeptical := decision.DefaultConfig()
	skeptical.Statistics.PriorAlpha = 20
	skeptical.Statistics.PriorBeta = 380

	flatResult, err := flat.Analyze(ctx, confidentRequest("run-priors"))
	require.NoError(t, err)
	skepticalResult, err := newTestServiceWithConfig(skeptical).Analyze(ctx, confidentRequest("run-priors"))
	require.NoError(t, err)
	assert.NotEqual(t, flatResult.Decision.Analysis.Fingerprint, skepticalResult.Decision.Analysis.Fingerprint)
}

func TestAnalyzeSeedChangesFingerprint(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	req := confidentRequest("run-seed")
	first, err := svc.Analyze(ctx, req)
	require.NoError(t, err)

	req.Seed = 7
	second, err := svc.Analyze(ctx, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Decision.Analysis.Fingerprint, second.Decision.Analysis.Fingerprint)
}

func TestAnalyzeRejectsInvalidCounts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Analyze(ctx, AnalyzeRequest{
		RunID:  "run-bad",
		Counts: []VariantCounts{{VariantID: "a", Clicks: 10, Conversions: 20}},
	})
	assert.ErrorIs(t, err, core.ErrInvalidMetrics)

	_, err = svc.Analyze(ctx, AnalyzeRequest{
		RunID: "run-dup",
		Counts: []VariantCounts{
			{VariantID: "a", Clicks: 10, Conversions: 1},
			{VariantID: "a", Clicks: 10, Conversions: 2},
		},
	})
	assert.ErrorIs(t, err, core.ErrInvalidMetrics)
}

func TestFinalizeIsWriteOnce(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Analyze(ctx, confidentRequest("run-final"))
	require.NoError(t, err)
	second, err := svc.Analyze(ctx, confidentRequest("run-final"))
	require.NoError(t, err)

	finalized, err := svc.Finalize(ctx, first.Decision.ID)
	require.NoError(t, err)
	assert.True(t, finalized.IsFinal())
	require.NotNil(t, finalized.FinalizedAt)

	_, err = svc.Finalize(ctx, first.Decision.ID)
	assert.ErrorIs(t, err, core.ErrDecisionFinalized)

	// A run carries at most one final decision.
	_, err = svc.Finalize(ctx, second.Decision.ID)
	assert.ErrorIs(t, err, core.ErrDecisionFinalized)

	// Analyzing a settled run is refused.
	_, err = svc.Analyze(ctx, confidentRequest("run-final"))
	assert.ErrorIs(t, err, core.ErrDecisionFinalized)

	stored, err := svc.GetFinalDecision(ctx, "run-final")
	require.NoError(t, err)
	assert.Equal(t, first.Decision.ID, stored.ID)
}

func TestReplayVerifiesFingerprint(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	req := confidentRequest("run-replay")
	result, err := svc.Analyze(ctx, req)
	require.NoError(t, err)

	replayed, err := svc.Replay(ctx, result.Decision.ID, req)
	require.NoError(t, err)
	assert.Equal(t, result.Decision.Analysis.Fingerprint, replayed.Fingerprint)

	req.Seed = 999
	_, err = svc.Replay(ctx, result.Decision.ID, req)
	assert.ErrorIs(t, err, core.ErrSeedMismatch)

	// Different counts under the stored seed must be caught.
	altered := confidentRequest("run-replay")
	altered.Counts[1].Conversions = 101
	_, err = svc.Replay(ctx, result.Decision.ID, altered)
	assert.ErrorIs(t, err, core.ErrNonDeterministic)
}

func TestQuickDoesNotPersist(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	quick, err := svc.Quick(ctx, confidentRequest("run-quick"))
	require.NoError(t, err)
	assert.Equal(t, decision.TierConfident, quick.Confidence)
	assert.Greater(t, quick.TopWinProbability, 0.95)

	_, err = svc.GetLatestDecision(ctx, "run-quick")
	assert.ErrorIs(t, err, core.ErrDecisionNotFound)
}

func TestGetDecisionHistoryNewestFirst(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Analyze(ctx, confidentRequest("run-hist"))
		require.NoError(t, err)
	}

	history, err := svc.GetDecisionHistory(ctx, "run-hist", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[1].CreatedAt.After(history[0].CreatedAt))
}
