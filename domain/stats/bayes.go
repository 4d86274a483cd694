package stats

import (
	"launchlab/domain/core"
	"launchlab/domain/metrics"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Default Beta-Binomial parameters. Beta(1,1) is the uniform prior.
const (
	DefaultPriorAlpha    = 1.0
	DefaultPriorBeta     = 1.0
	DefaultSimulations   = 10000
	DefaultCredibleLevel = 0.95
)

// Posterior is a Beta(Alpha, Beta) posterior over a variant's true
// conversion rate under a Binomial likelihood.
// INVARIANTS:
// - CredibleLower < PosteriorMean < CredibleUpper
// - Both credible bounds strictly inside (0,1) for finite data
type Posterior struct {
	VariantID     core.VariantID `json:"variant_id"`
	Alpha         float64        `json:"alpha"`
	Beta          float64        `json:"beta"`
	PosteriorMean float64        `json:"posterior_mean"`
	CredibleLower float64        `json:"credible_interval_lower"`
	CredibleUpper float64        `json:"credible_interval_upper"`
}

// BayesianComparison bundles win probabilities across a variant set.
type BayesianComparison struct {
	Variants                []Posterior                `json:"variants"`
	WinProbabilities        map[core.VariantID]float64 `json:"win_probabilities"`
	LikelyWinner            core.VariantID             `json:"likely_winner,omitempty"`
	LikelyWinnerProbability float64                    `json:"likely_winner_probability"`
}

// NewPosterior updates a Beta prior with the variant's observed counts.
// Credible bounds come from the Beta quantile function.
func NewPosterior(v metrics.VariantMetrics, priorAlpha, priorBeta float64) Posterior {
	alpha := priorAlpha + float64(v.Conversions)
	beta := priorBeta + float64(v.Clicks-v.Conversions)

	dists := NewDistributions()
	tail := (1 - DefaultCredibleLevel) / 2

	return Posterior{
		VariantID:     v.VariantID,
		Alpha:         alpha,
		Beta:          beta,
		PosteriorMean: alpha / (alpha + beta),
		CredibleLower: dists.BetaQuantile(tail, alpha, beta),
		CredibleUpper: dists.BetaQuantile(1-tail, alpha, beta),
	}
}

// WinProbabilities estimates, per variant, the probability that its true
// conversion rate is the highest, by drawing one sample per variant per
// iteration and counting arg-max wins. A single variant gets probability
// 1.0 without simulating. Results are deterministic for a fixed source:
// samplers share the one source and draw in variant input order.
func WinProbabilities(variants []metrics.VariantMetrics, priorAlpha, priorBeta float64, simulations int, src rand.Source) map[core.VariantID]float64 {
	probs := make(map[core.VariantID]float64, len(variants))
	if len(variants) == 0 {
		return probs
	}
	if len(variants) == 1 {
		probs[variants[0].VariantID] = 1.0
		return probs
	}
	if simulations <= 0 {
		simulations = DefaultSimulations
	}

	samplers := posteriorSamplers(variants, priorAlpha, priorBeta, src)

	wins := make([]int, len(variants))
	for i := 0; i < simulations; i++ {
		best := 0
		bestValue := samplers[0].Rand()
		for j := 1; j < len(samplers); j++ {
			if v := samplers[j].Rand(); v > bestValue {
				bestValue = v
				best = j
			}
		}
		wins[best]++
	}

	for i, v := range variants {
		probs[v.VariantID] = float64(wins[i]) / float64(simulations)
	}
	return probs
}

// CompareBayesian computes posteriors and win probabilities and names the
// arg-max variant as the likely winner.
func CompareBayesian(variants []metrics.VariantMetrics, priorAlpha, priorBeta float64, simulations int, src rand.Source) BayesianComparison {
	posteriors := make([]Posterior, len(variants))
	for i, v := range variants {
		posteriors[i] = NewPosterior(v, priorAlpha, priorBeta)
	}

	probs := WinProbabilities(variants, priorAlpha, priorBeta, simulations, src)

	comparison := BayesianComparison{
		Variants:         posteriors,
		WinProbabilities: probs,
	}

	// Arg-max in input order so ties resolve deterministically.
	for _, v := range variants {
		if p := probs[v.VariantID]; comparison.LikelyWinner == "" || p > comparison.LikelyWinnerProbability {
			comparison.LikelyWinner = v.VariantID
			comparison.LikelyWinnerProbability = p
		}
	}
	return comparison
}

// ProbabilityBeats estimates P(rate_a > rate_b) under the two posteriors.
// Statistically identical variants land near 0.5.
func ProbabilityBeats(a, b metrics.VariantMetrics, priorAlpha, priorBeta float64, simulations int, src rand.Source) float64 {
	if simulations <= 0 {
		simulations = DefaultSimulations
	}
	samplers := posteriorSamplers([]metrics.VariantMetrics{a, b}, priorAlpha, priorBeta, src)

	wins := 0
	for i := 0; i < simulations; i++ {
		sampleA := samplers[0].Rand()
		sampleB := samplers[1].Rand()
		if sampleA > sampleB {
			wins++
		}
	}
	return float64(wins) / float64(simulations)
}

// ExpectedLoss estimates, per variant, the expected shortfall of choosing
// it over the per-draw best: E[max(0, best_other - this)]. A single
// variant has zero loss by definition.
func ExpectedLoss(variants []metrics.VariantMetrics, priorAlpha, priorBeta float64, simulations int, src rand.Source) map[core.VariantID]float64 {
	losses := make(map[core.VariantID]float64, len(variants))
	if len(variants) == 0 {
		return losses
	}
	if len(variants) == 1 {
		losses[variants[0].VariantID] = 0
		return losses
	}
	if simulations <= 0 {
		simulations = DefaultSimulations
	}

	samplers := posteriorSamplers(variants, priorAlpha, priorBeta, src)

	totals := make([]float64, len(variants))
	draws := make([]float64, len(variants))
	for i := 0; i < simulations; i++ {
		best := 0.0
		for j := range samplers {
			draws[j] = samplers[j].Rand()
			if draws[j] > best {
				best = draws[j]
			}
		}
		for j := range draws {
			if loss := best - draws[j]; loss > 0 {
				totals[j] += loss
			}
		}
	}

	for i, v := range variants {
		losses[v.VariantID] = totals[i] / float64(simulations)
	}
	return losses
}

// posteriorSamplers binds one Beta sampler per variant to a shared source.
func posteriorSamplers(variants []metrics.VariantMetrics, priorAlpha, priorBeta float64, src rand.Source) []distuv.Beta {
	dists := NewDistributions()
	samplers := make([]distuv.Beta, len(variants))
	for i, v := range variants {
		alpha := priorAlpha + float64(v.Conversions)
		beta := priorBeta + float64(v.Clicks-v.Conversions)
		samplers[i] = dists.BetaSampler(alpha, beta, src)
	}
	return samplers
}
