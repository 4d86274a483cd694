package decision

import (
	"launchlab/domain/metrics"

	"github.com/montanaflynn/stats"
)

// ComputeStatsSummary builds the descriptive CVR summary attached to an
// analysis. Empty input yields a zero summary.
func ComputeStatsSummary(variants []metrics.VariantMetrics) StatsSummary {
	if len(variants) == 0 {
		return StatsSummary{}
	}

	cvrs := make([]float64, len(variants))
	for i, v := range variants {
		cvrs[i] = v.CVR
	}

	mean, _ := stats.Mean(cvrs)
	median, _ := stats.Median(cvrs)
	stdDev, _ := stats.StandardDeviation(cvrs)
	min, _ := stats.Min(cvrs)
	max, _ := stats.Max(cvrs)

	return StatsSummary{
		MeanCVR:   mean,
		MedianCVR: median,
		StdDevCVR: stdDev,
		MinCVR:    min,
		MaxCVR:    max,
	}
}
