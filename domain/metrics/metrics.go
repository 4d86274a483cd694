// Package metrics holds the aggregated counter value types the decision
// engine consumes. Values are rebuilt fresh on every evaluation and never
// mutated after construction.
package metrics

import (
	"launchlab/domain/core"
)

// VariantMetrics captures the aggregated counters for one experiment arm.
// INVARIANTS:
// - Clicks >= 0, Conversions >= 0, Conversions <= Clicks
// - CVR = Conversions/Clicks when Clicks > 0, else 0
type VariantMetrics struct {
	VariantID   core.VariantID `json:"variant_id"`
	Clicks      int            `json:"clicks"`
	Conversions int            `json:"conversions"`
	CVR         float64        `json:"cvr"`
}

// AggregateMetrics is the sum over a set of variant metrics. Derived,
// never persisted.
type AggregateMetrics struct {
	TotalClicks      int `json:"total_clicks"`
	TotalConversions int `json:"total_conversions"`
	VariantCount     int `json:"variant_count"`
}

// New builds validated VariantMetrics from raw counters.
// Negative counts and conversions exceeding clicks are rejected rather
// than silently accepted.
func New(variantID core.VariantID, clicks, conversions int) (VariantMetrics, error) {
	if clicks < 0 {
		return VariantMetrics{}, core.NewInvalidMetricsError(variantID.String(), "clicks must be non-negative")
	}
	if conversions < 0 {
		return VariantMetrics{}, core.NewInvalidMetricsError(variantID.String(), "conversions must be non-negative")
	}
	if conversions > clicks {
		return VariantMetrics{}, core.NewInvalidMetricsError(variantID.String(), "conversions cannot exceed clicks")
	}

	cvr := 0.0
	if clicks > 0 {
		cvr = float64(conversions) / float64(clicks)
	}

	return VariantMetrics{
		VariantID:   variantID,
		Clicks:      clicks,
		Conversions: conversions,
		CVR:         cvr,
	}, nil
}

// MustNew builds VariantMetrics and panics on invalid input.
// Use only in tests and development - production code should handle validation errors
func MustNew(variantID core.VariantID, clicks, conversions int) VariantMetrics {
	m, err := New(variantID, clicks, conversions)
	if err != nil {
		panic(err)
	}
	return m
}

// Aggregate sums clicks and conversions across variants. Empty input
// yields all zeros.
func Aggregate(variants []VariantMetrics) AggregateMetrics {
	agg := AggregateMetrics{VariantCount: len(variants)}
	for _, v := range variants {
		agg.TotalClicks += v.Clicks
		agg.TotalConversions += v.Conversions
	}
	return agg
}

// EstimatedCVR returns the pooled conversion rate across all variants,
// or the given floor when no clicks have been observed.
func (a AggregateMetrics) EstimatedCVR(floor float64) float64 {
	if a.TotalClicks > 0 {
		return float64(a.TotalConversions) / float64(a.TotalClicks)
	}
	return floor
}
