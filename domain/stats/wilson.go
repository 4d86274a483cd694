package stats

import (
	"math"

	"launchlab/domain/core"
	"launchlab/domain/metrics"
)

// DefaultConfidenceLevel is the two-sided confidence level used when the
// caller does not specify one.
const DefaultConfidenceLevel = 0.95

// WilsonCI is a Wilson score confidence interval for a binomial proportion.
// INVARIANTS:
// - Point, Lower, Upper in [0,1]
// - Lower <= Point <= Upper
type WilsonCI struct {
	Point           float64 `json:"point"`
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// WilsonComparison is the pairwise interval comparison of two variants.
type WilsonComparison struct {
	VariantA             core.VariantID `json:"variant_a"`
	VariantB             core.VariantID `json:"variant_b"`
	IntervalA            WilsonCI       `json:"interval_a"`
	IntervalB            WilsonCI       `json:"interval_b"`
	Overlapping          bool           `json:"overlapping"`
	ASignificantlyBetter bool           `json:"a_significantly_better"`
	BSignificantlyBetter bool           `json:"b_significantly_better"`
	RelativeLift         float64        `json:"relative_lift"`
}

// Wilson computes the Wilson score interval for successes/trials.
// The Wilson interval stays well-behaved near proportions of 0 and 1,
// which the normal approximation does not. trials == 0 returns an
// all-zero interval, not an error.
func Wilson(successes, trials int, confidenceLevel float64) WilsonCI {
	if trials == 0 {
		return WilsonCI{ConfidenceLevel: confidenceLevel}
	}

	z := NewDistributions().ZScore(confidenceLevel)
	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	margin := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	lower := center - margin
	upper := center + margin
	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}

	return WilsonCI{
		Point:           p,
		Lower:           lower,
		Upper:           upper,
		ConfidenceLevel: confidenceLevel,
	}
}

// VariantWilson computes the Wilson interval for a variant's conversion rate.
func VariantWilson(v metrics.VariantMetrics, confidenceLevel float64) WilsonCI {
	return Wilson(v.Conversions, v.Clicks, confidenceLevel)
}

// CompareWilson compares two variants by their Wilson intervals. A variant
// is significantly better only when its lower bound clears the other's
// upper bound.
func CompareWilson(a, b metrics.VariantMetrics, confidenceLevel float64) WilsonComparison {
	ciA := VariantWilson(a, confidenceLevel)
	ciB := VariantWilson(b, confidenceLevel)

	relativeLift := 0.0
	if b.CVR > 0 {
		relativeLift = (a.CVR - b.CVR) / b.CVR
	}

	aBetter := ciA.Lower > ciB.Upper
	bBetter := ciB.Lower > ciA.Upper

	return WilsonComparison{
		VariantA:             a.VariantID,
		VariantB:             b.VariantID,
		IntervalA:            ciA,
		IntervalB:            ciB,
		Overlapping:          !aBetter && !bBetter,
		ASignificantlyBetter: aBetter,
		BSignificantlyBetter: bBetter,
		RelativeLift:         relativeLift,
	}
}

// CompareAllWilson returns the full unordered pairwise comparison set:
// n*(n-1)/2 entries for n variants, empty for fewer than two.
func CompareAllWilson(variants []metrics.VariantMetrics, confidenceLevel float64) []WilsonComparison {
	if len(variants) < 2 {
		return []WilsonComparison{}
	}

	comparisons := make([]WilsonComparison, 0, len(variants)*(len(variants)-1)/2)
	for i := 0; i < len(variants); i++ {
		for j := i + 1; j < len(variants); j++ {
			comparisons = append(comparisons, CompareWilson(variants[i], variants[j], confidenceLevel))
		}
	}
	return comparisons
}

// IsSignificantWinner reports whether the target variant's lower bound
// exceeds every other variant's upper bound. False for an empty others
// list and false when the target is not among the candidates.
func IsSignificantWinner(targetID core.VariantID, variants []metrics.VariantMetrics, confidenceLevel float64) bool {
	var target *metrics.VariantMetrics
	others := make([]metrics.VariantMetrics, 0, len(variants))
	for i := range variants {
		if variants[i].VariantID == targetID {
			target = &variants[i]
			continue
		}
		others = append(others, variants[i])
	}
	if target == nil || len(others) == 0 {
		return false
	}

	targetCI := VariantWilson(*target, confidenceLevel)
	for _, other := range others {
		if targetCI.Lower <= VariantWilson(other, confidenceLevel).Upper {
			return false
		}
	}
	return true
}
