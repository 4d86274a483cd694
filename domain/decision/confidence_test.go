package decision

import (
	"strings"
	"testing"

	"launchlab/domain/core"
	"launchlab/domain/metrics"

	"golang.org/x/exp/rand"
)

func TestEvaluateConfidence(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("no variants", func(t *testing.T) {
		verdict := EvaluateConfidence(nil, cfg, rand.NewSource(1))
		if verdict.Confidence != TierInsufficient {
			t.Errorf("expected insufficient, got %s", verdict.Confidence)
		}
		if len(verdict.Ranking) != 0 {
			t.Errorf("expected empty ranking, got %d entries", len(verdict.Ranking))
		}
		if verdict.WinnerID != nil {
			t.Error("expected no winner")
		}
	})

	t.Run("single variant is always insufficient", func(t *testing.T) {
		verdict := EvaluateConfidence(
			[]metrics.VariantMetrics{metrics.MustNew("solo", 1000, 50)},
			cfg, rand.NewSource(1),
		)
		if verdict.Confidence != TierInsufficient {
			t.Errorf("expected insufficient for a single arm, got %s", verdict.Confidence)
		}
		if !strings.Contains(verdict.Rationale, "only one variant") {
			t.Errorf("rationale should mention the single arm: %q", verdict.Rationale)
		}
		if verdict.Recommendation != RecommendContinue {
			t.Errorf("expected continue, got %s", verdict.Recommendation)
		}
	})

	t.Run("clear separation is confident with stop recommendation", func(t *testing.T) {
		variants := []metrics.VariantMetrics{
			metrics.MustNew("a", 5000, 500),
			metrics.MustNew("b", 5000, 100),
		}

		verdict := EvaluateConfidence(variants, cfg, rand.NewSource(42))
		if verdict.Confidence != TierConfident {
			t.Fatalf("expected confident, got %s (%s)", verdict.Confidence, verdict.Rationale)
		}
		if verdict.WinnerID == nil || verdict.WinnerID.String() != "a" {
			t.Errorf("expected winner a, got %v", verdict.WinnerID)
		}
		if verdict.Recommendation != RecommendStopWinner {
			t.Errorf("expected stop_winner, got %s", verdict.Recommendation)
		}
		if !strings.Contains(verdict.Rationale, "a") || !strings.Contains(verdict.Rationale, "%") {
			t.Errorf("rationale should name the winner and its probability: %q", verdict.Rationale)
		}
	})

	t.Run("volume without separation is directional", func(t *testing.T) {
		variants := []metrics.VariantMetrics{
			metrics.MustNew("a", 5000, 250),
			metrics.MustNew("b", 5000, 245),
		}

		verdict := EvaluateConfidence(variants, cfg, rand.NewSource(42))
		if verdict.Confidence != TierDirectional {
			t.Fatalf("expected directional, got %s (%s)", verdict.Confidence, verdict.Rationale)
		}
		if verdict.WinnerID != nil {
			t.Error("directional verdict must not declare a winner")
		}
		if verdict.Recommendation != RecommendContinue {
			t.Errorf("expected continue, got %s", verdict.Recommendation)
		}
	})

	t.Run("tiny sample is insufficient", func(t *testing.T) {
		variants := []metrics.VariantMetrics{
			metrics.MustNew("a", 50, 2),
			metrics.MustNew("b", 50, 1),
		}

		verdict := EvaluateConfidence(variants, cfg, rand.NewSource(42))
		if verdict.Confidence != TierInsufficient {
			t.Errorf("expected insufficient, got %s", verdict.Confidence)
		}
	})
}

func TestClassifyTier_OrderMatters(t *testing.T) {
	cfg := DefaultConfig()
	variants := []metrics.VariantMetrics{
		metrics.MustNew("a", 5000, 500),
		metrics.MustNew("b", 5000, 100),
	}
	agg := metrics.Aggregate(variants)

	// Meets both the confident and directional gates; confident must win.
	if tier := ClassifyTier(variants, agg, 0.99, cfg); tier != TierConfident {
		t.Errorf("expected confident when both gates are met, got %s", tier)
	}

	// Same volume but an ambiguous top probability degrades to directional.
	if tier := ClassifyTier(variants, agg, 0.60, cfg); tier != TierDirectional {
		t.Errorf("expected directional with low win probability, got %s", tier)
	}
}

func TestAdditionalSamplesNeeded(t *testing.T) {
	st := DefaultSampleThresholds()

	t.Run("below the confident gate", func(t *testing.T) {
		agg := metrics.AggregateMetrics{TotalClicks: 1000, TotalConversions: 10}
		needed := AdditionalSamplesNeeded(agg, st)
		if needed == nil || *needed <= 0 {
			t.Fatalf("expected a positive estimate, got %v", needed)
		}
		// (100-10)/0.01 = 9000 additional clicks
		if *needed != 9000 {
			t.Errorf("expected 9000, got %d", *needed)
		}
	})

	t.Run("at the gate needs nothing", func(t *testing.T) {
		agg := metrics.AggregateMetrics{TotalClicks: 10000, TotalConversions: 100}
		if needed := AdditionalSamplesNeeded(agg, st); needed != nil {
			t.Errorf("expected nil, got %d", *needed)
		}
	})

	t.Run("no clicks uses the floor rate", func(t *testing.T) {
		needed := AdditionalSamplesNeeded(metrics.AggregateMetrics{}, st)
		if needed == nil || *needed != 10000 {
			t.Fatalf("expected 100/0.01 = 10000, got %v", needed)
		}
	})
}

func TestRecommend(t *testing.T) {
	id := core.VariantID("a")

	if got := Recommend(TierConfident, &id); got != RecommendStopWinner {
		t.Errorf("confident with winner should stop, got %s", got)
	}
	if got := Recommend(TierConfident, nil); got != RecommendContinue {
		t.Errorf("confident without winner should continue, got %s", got)
	}
	if got := Recommend(TierDirectional, nil); got != RecommendContinue {
		t.Errorf("directional should continue, got %s", got)
	}
}
