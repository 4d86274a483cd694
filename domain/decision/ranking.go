package decision

import (
	"sort"

	"launchlab/domain/core"
	"launchlab/domain/metrics"
	"launchlab/domain/stats"

	"golang.org/x/exp/rand"
)

// SortCriteria names a ranking strategy.
type SortCriteria string

const (
	CriteriaCVR                 SortCriteria = "cvr"
	CriteriaWilsonLower         SortCriteria = "wilson_lower"
	CriteriaBayesianProbability SortCriteria = "bayesian_probability"
	CriteriaExpectedLoss        SortCriteria = "expected_loss"
	CriteriaComposite           SortCriteria = "composite"
)

// Composite score weights. The Bayesian win probability carries the most
// weight; the expected-loss term rewards low regret.
const (
	weightCVR          = 0.3
	weightWilsonLower  = 0.2
	weightWinProb      = 0.4
	weightExpectedLoss = 0.1
)

// SortVariants returns a copy of the variants ordered by the given
// criteria. Bayesian-based criteria fall back to CVR ordering when no
// comparison data is supplied. Ties break by CVR, then by variant ID for
// stability.
func SortVariants(variants []metrics.VariantMetrics, criteria SortCriteria, bayes *stats.BayesianComparison, losses map[core.VariantID]float64, cfg Config) []metrics.VariantMetrics {
	sorted := make([]metrics.VariantMetrics, len(variants))
	copy(sorted, variants)

	key := func(v metrics.VariantMetrics) float64 {
		switch criteria {
		case CriteriaCVR:
			return v.CVR
		case CriteriaWilsonLower:
			return stats.VariantWilson(v, cfg.Statistics.ConfidenceLevel).Lower
		case CriteriaBayesianProbability:
			if bayes == nil {
				return v.CVR
			}
			return bayes.WinProbabilities[v.VariantID]
		case CriteriaExpectedLoss:
			if losses == nil {
				return -v.CVR
			}
			// Ascending: lower loss is better.
			return -losses[v.VariantID]
		default:
			return compositeScore(v, bayes, losses, cfg.Statistics.ConfidenceLevel)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := key(sorted[i]), key(sorted[j])
		if ki != kj {
			return ki > kj
		}
		if sorted[i].CVR != sorted[j].CVR {
			return sorted[i].CVR > sorted[j].CVR
		}
		return sorted[i].VariantID < sorted[j].VariantID
	})
	return sorted
}

// compositeScore blends the point estimate, the conservative Wilson lower
// bound, the win probability and the normalized expected loss. Missing
// Bayesian or loss data contributes zero for its term.
func compositeScore(v metrics.VariantMetrics, bayes *stats.BayesianComparison, losses map[core.VariantID]float64, confidenceLevel float64) float64 {
	score := weightCVR*v.CVR + weightWilsonLower*stats.VariantWilson(v, confidenceLevel).Lower

	if bayes != nil {
		score += weightWinProb * bayes.WinProbabilities[v.VariantID]
	}

	if maxLoss := maxExpectedLoss(losses); maxLoss > 0 {
		score += weightExpectedLoss * (1 - losses[v.VariantID]/maxLoss)
	}
	return score
}

func maxExpectedLoss(losses map[core.VariantID]float64) float64 {
	max := 0.0
	for _, loss := range losses {
		if loss > max {
			max = loss
		}
	}
	return max
}

// GenerateRanking runs the simulator and expected-loss estimation once and
// emits composite-ordered entries with contiguous 1-based ranks. Empty
// input yields an empty ranking.
func GenerateRanking(variants []metrics.VariantMetrics, cfg Config, src rand.Source) []RankingEntry {
	if len(variants) == 0 {
		return []RankingEntry{}
	}

	comparison := stats.CompareBayesian(variants, cfg.Statistics.PriorAlpha, cfg.Statistics.PriorBeta, cfg.Statistics.Simulations, src)
	losses := stats.ExpectedLoss(variants, cfg.Statistics.PriorAlpha, cfg.Statistics.PriorBeta, cfg.Statistics.Simulations, src)
	return buildRanking(variants, comparison, losses, cfg.Statistics.ConfidenceLevel)
}

// buildRanking assembles entries from precomputed simulation output so
// callers that already ran the simulator do not pay for it twice.
func buildRanking(variants []metrics.VariantMetrics, comparison stats.BayesianComparison, losses map[core.VariantID]float64, confidenceLevel float64) []RankingEntry {
	entries := make([]RankingEntry, len(variants))
	for i, v := range variants {
		entries[i] = RankingEntry{
			VariantID:              v.VariantID,
			Metrics:                v,
			WilsonCI:               stats.VariantWilson(v, confidenceLevel),
			BayesianWinProbability: comparison.WinProbabilities[v.VariantID],
			Score:                  compositeScore(v, &comparison, losses, confidenceLevel),
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Metrics.CVR != entries[j].Metrics.CVR {
			return entries[i].Metrics.CVR > entries[j].Metrics.CVR
		}
		return entries[i].VariantID < entries[j].VariantID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// DetermineWinner picks the top-ranked variant only when the evidence is
// unambiguous: its win probability clears minWinProbability AND, when a
// runner-up exists, the probability gap between first and second place is
// at least gapThreshold. The gap rule suppresses winners whose runner-up
// is not meaningfully worse.
func DetermineWinner(ranking []RankingEntry, minWinProbability, gapThreshold float64) *core.VariantID {
	if len(ranking) == 0 {
		return nil
	}

	top := ranking[0]
	if top.BayesianWinProbability < minWinProbability {
		return nil
	}

	if len(ranking) > 1 {
		gap := top.BayesianWinProbability - ranking[1].BayesianWinProbability
		if gap < gapThreshold {
			return nil
		}
	}

	id := top.VariantID
	return &id
}

// IsClearWinner reports whether the named variant's Wilson interval is
// disjoint from every other variant's interval. This is a pure frequentist
// check, independent of the Bayesian gap rule in DetermineWinner. False
// for an unknown id or when there is nothing to compare against.
func IsClearWinner(variantID core.VariantID, variants []metrics.VariantMetrics, cfg Config) bool {
	var target *metrics.VariantMetrics
	others := make([]metrics.VariantMetrics, 0, len(variants))
	for i := range variants {
		if variants[i].VariantID == variantID {
			target = &variants[i]
			continue
		}
		others = append(others, variants[i])
	}
	if target == nil || len(others) == 0 {
		return false
	}

	targetCI := stats.VariantWilson(*target, cfg.Statistics.ConfidenceLevel)
	for _, other := range others {
		otherCI := stats.VariantWilson(other, cfg.Statistics.ConfidenceLevel)
		overlapping := targetCI.Lower <= otherCI.Upper && otherCI.Lower <= targetCI.Upper
		if overlapping {
			return false
		}
	}
	return true
}

// AnalyzeVariants bundles the classifier verdict with the complete
// pairwise and Bayesian evidence. The verdict is derived from the same
// simulation draws reported in BayesianAnalysis and ExpectedLoss, never
// from a rerun.
func AnalyzeVariants(variants []metrics.VariantMetrics, cfg Config, src rand.Source) VariantAnalysis {
	comparison := stats.CompareBayesian(variants, cfg.Statistics.PriorAlpha, cfg.Statistics.PriorBeta, cfg.Statistics.Simulations, src)
	losses := stats.ExpectedLoss(variants, cfg.Statistics.PriorAlpha, cfg.Statistics.PriorBeta, cfg.Statistics.Simulations, src)

	return VariantAnalysis{
		Decision:         evaluateSimulated(variants, comparison, losses, cfg),
		WilsonAnalysis:   stats.CompareAllWilson(variants, cfg.Statistics.ConfidenceLevel),
		BayesianAnalysis: comparison,
		ExpectedLoss:     losses,
		Aggregate:        metrics.Aggregate(variants),
		AnalyzedAt:       core.Now(),
	}
}

// QuickAnalysis is the cheap dashboard wrapper over EvaluateConfidence.
// Empty input yields an insufficient verdict with no winner.
func QuickAnalysis(variants []metrics.VariantMetrics, cfg Config, src rand.Source) QuickResult {
	if len(variants) == 0 {
		return QuickResult{Confidence: TierInsufficient, TopWinProbability: 0}
	}

	verdict := EvaluateConfidence(variants, cfg, src)

	top := 0.0
	for _, entry := range verdict.Ranking {
		if entry.BayesianWinProbability > top {
			top = entry.BayesianWinProbability
		}
	}

	return QuickResult{
		WinnerID:          verdict.WinnerID,
		Confidence:        verdict.Confidence,
		TopWinProbability: top,
	}
}
