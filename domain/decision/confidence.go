package decision

import (
	"fmt"
	"math"

	"launchlab/domain/core"
	"launchlab/domain/metrics"
	"launchlab/domain/stats"

	"golang.org/x/exp/rand"
)

// ClassifyTier applies the sample-threshold rules to pick exactly one
// tier. Rules are evaluated in order, first match wins:
//  1. insufficient: below both insufficient gates
//  2. confident: total and per-variant conversion gates met AND the top
//     Bayesian win probability clears the minimum
//  3. directional: either directional gate met
//  4. fallback: insufficient
//
// Confident is checked before directional because meeting the stricter
// bar implies the weaker one; the two are not mutually exclusive.
func ClassifyTier(variants []metrics.VariantMetrics, agg metrics.AggregateMetrics, topWinProbability float64, cfg Config) Tier {
	st := cfg.Samples

	if agg.TotalClicks < st.Insufficient.MinTotalClicks && agg.TotalConversions < st.Insufficient.MinTotalCvs {
		return TierInsufficient
	}

	if agg.TotalConversions >= st.Confident.MinTotalCvs &&
		everyVariantHasConversions(variants, st.Confident.MinPerVariantCvs) &&
		topWinProbability >= cfg.Statistics.MinWinProbability {
		return TierConfident
	}

	if agg.TotalClicks >= st.Directional.MinTotalClicks || agg.TotalConversions >= st.Directional.MinTotalCvs {
		return TierDirectional
	}

	return TierInsufficient
}

func everyVariantHasConversions(variants []metrics.VariantMetrics, min int) bool {
	for _, v := range variants {
		if v.Conversions < min {
			return false
		}
	}
	return true
}

// AdditionalSamplesNeeded estimates how many more clicks are required to
// reach the confident conversion gate. Nil when already at or above it.
// The estimate divides the conversion shortfall by the pooled conversion
// rate, with a 1% floor before any conversion has been observed.
func AdditionalSamplesNeeded(agg metrics.AggregateMetrics, st SampleThresholds) *int {
	if agg.TotalConversions >= st.Confident.MinTotalCvs {
		return nil
	}

	estimatedCVR := agg.EstimatedCVR(minEstimatedCVR)
	if estimatedCVR <= 0 {
		estimatedCVR = minEstimatedCVR
	}

	needed := int(math.Ceil(float64(st.Confident.MinTotalCvs-agg.TotalConversions) / estimatedCVR))
	return &needed
}

// Rationale renders a human-readable explanation of the tier verdict:
// tier name, observed counts, the thresholds that applied, and for
// directional/confident the candidate variant and its win probability.
func Rationale(tier Tier, agg metrics.AggregateMetrics, candidateID *core.VariantID, topWinProbability float64, st SampleThresholds) string {
	switch tier {
	case TierConfident:
		return fmt.Sprintf(
			"confident: %d conversions across %d variants meet the confident threshold (>=%d total, >=%d per variant); variant %s wins with %.1f%% probability",
			agg.TotalConversions, agg.VariantCount, st.Confident.MinTotalCvs, st.Confident.MinPerVariantCvs,
			candidateLabel(candidateID), topWinProbability*100,
		)
	case TierDirectional:
		return fmt.Sprintf(
			"directional: %d clicks and %d conversions meet the directional threshold (>=%d clicks or >=%d conversions); leading candidate %s at %.1f%% win probability is not yet conclusive",
			agg.TotalClicks, agg.TotalConversions, st.Directional.MinTotalClicks, st.Directional.MinTotalCvs,
			candidateLabel(candidateID), topWinProbability*100,
		)
	default:
		return fmt.Sprintf(
			"insufficient: %d clicks and %d conversions are below the minimum sample thresholds (%d clicks, %d conversions)",
			agg.TotalClicks, agg.TotalConversions, st.Insufficient.MinTotalClicks, st.Insufficient.MinTotalCvs,
		)
	}
}

func candidateLabel(id *core.VariantID) string {
	if id == nil {
		return "unknown"
	}
	return id.String()
}

// Recommend maps a tier verdict to an action. A stop is only recommended
// for a confident verdict with a declared winner.
func Recommend(tier Tier, winnerID *core.VariantID) Recommendation {
	if tier == TierConfident && winnerID != nil {
		return RecommendStopWinner
	}
	return RecommendContinue
}

// EvaluateConfidence runs the full classification over a variant set:
// simulation, tier rules, winner gating, rationale and recommendation.
// The winner named here is the threshold-gated one: a confident tier plus
// the top win probability clearing the configured minimum.
func EvaluateConfidence(variants []metrics.VariantMetrics, cfg Config, src rand.Source) ConfidenceDecision {
	comparison := stats.CompareBayesian(variants, cfg.Statistics.PriorAlpha, cfg.Statistics.PriorBeta, cfg.Statistics.Simulations, src)
	losses := stats.ExpectedLoss(variants, cfg.Statistics.PriorAlpha, cfg.Statistics.PriorBeta, cfg.Statistics.Simulations, src)
	return evaluateSimulated(variants, comparison, losses, cfg)
}

// evaluateSimulated applies the tier rules to precomputed simulation
// output. Callers that already ran the simulator reuse its draws here, so
// the verdict and the evidence it ships with always agree.
func evaluateSimulated(variants []metrics.VariantMetrics, comparison stats.BayesianComparison, losses map[core.VariantID]float64, cfg Config) ConfidenceDecision {
	if len(variants) == 0 {
		return ConfidenceDecision{
			Confidence:     TierInsufficient,
			Ranking:        []RankingEntry{},
			Rationale:      "insufficient: no variants to evaluate",
			Recommendation: RecommendContinue,
		}
	}

	agg := metrics.Aggregate(variants)
	ranking := buildRanking(variants, comparison, losses, cfg.Statistics.ConfidenceLevel)

	// A single arm can never be confident, whatever its volume.
	if len(variants) == 1 {
		return ConfidenceDecision{
			Confidence: TierInsufficient,
			Ranking:    ranking,
			Rationale: fmt.Sprintf(
				"insufficient: only one variant (%s) is under test; comparison requires at least two",
				variants[0].VariantID,
			),
			Recommendation: RecommendContinue,
		}
	}

	candidate := comparison.LikelyWinner
	tier := ClassifyTier(variants, agg, comparison.LikelyWinnerProbability, cfg)

	var winnerID *core.VariantID
	if tier == TierConfident {
		winnerID = &candidate
	}

	return ConfidenceDecision{
		Confidence:     tier,
		WinnerID:       winnerID,
		Ranking:        ranking,
		Rationale:      Rationale(tier, agg, &candidate, comparison.LikelyWinnerProbability, cfg.Samples),
		Recommendation: Recommend(tier, winnerID),
	}
}
