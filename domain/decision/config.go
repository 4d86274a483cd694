// Package decision implements the experiment decision engine: confidence
// tier classification, ranking and guarded winner selection over
// per-variant click/conversion counters.
package decision

import (
	"encoding/json"

	"launchlab/domain/stats"
)

// TierThresholds holds the sample-size gates for one confidence tier.
type TierThresholds struct {
	MinTotalClicks   int `json:"min_total_clicks,omitempty"`
	MinTotalCvs      int `json:"min_total_cvs,omitempty"`
	MinPerVariantCvs int `json:"min_per_variant_cvs,omitempty"`
}

// SampleThresholds gates the three confidence tiers on observed volume.
type SampleThresholds struct {
	Insufficient TierThresholds `json:"insufficient"`
	Directional  TierThresholds `json:"directional"`
	Confident    TierThresholds `json:"confident"`
}

// ConfidenceThresholds selects the statistical method and its parameters.
type ConfidenceThresholds struct {
	Method    string  `json:"method"` // "wilson" or "bayes"
	Alpha     float64 `json:"alpha"`
	MinEffect float64 `json:"min_effect"`
}

// StatisticsConfig tunes the simulation and guardrail machinery.
type StatisticsConfig struct {
	PriorAlpha         float64 `json:"prior_alpha"`
	PriorBeta          float64 `json:"prior_beta"`
	Simulations        int     `json:"simulations"`
	ConfidenceLevel    float64 `json:"confidence_level"`
	MinWinProbability  float64 `json:"min_win_probability"`
	WinnerGapThreshold float64 `json:"winner_gap_threshold"`
}

// Config is the complete decision engine configuration. Defaults are
// constructed fresh per call; there are no mutable package-level configs.
type Config struct {
	Samples    SampleThresholds     `json:"sample_thresholds"`
	Confidence ConfidenceThresholds `json:"confidence_thresholds"`
	Statistics StatisticsConfig     `json:"statistics"`
}

// minEstimatedCVR is the floor conversion rate used to project additional
// sample needs before any conversion has been observed.
const minEstimatedCVR = 0.01

// DefaultSampleThresholds returns the stock tier gates.
func DefaultSampleThresholds() SampleThresholds {
	return SampleThresholds{
		Insufficient: TierThresholds{MinTotalClicks: 1000, MinTotalCvs: 30},
		Directional:  TierThresholds{MinTotalClicks: 1000, MinTotalCvs: 30},
		Confident:    TierThresholds{MinTotalCvs: 100, MinPerVariantCvs: 30},
	}
}

// DefaultConfidenceThresholds returns the stock method selection.
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{
		Method:    "bayes",
		Alpha:     0.05,
		MinEffect: 0.01,
	}
}

// DefaultStatisticsConfig returns the stock simulation parameters.
func DefaultStatisticsConfig() StatisticsConfig {
	return StatisticsConfig{
		PriorAlpha:         stats.DefaultPriorAlpha,
		PriorBeta:          stats.DefaultPriorBeta,
		Simulations:        stats.DefaultSimulations,
		ConfidenceLevel:    stats.DefaultConfidenceLevel,
		MinWinProbability:  0.95,
		WinnerGapThreshold: 0.8,
	}
}

// DefaultConfig returns the complete default configuration.
func DefaultConfig() Config {
	return Config{
		Samples:    DefaultSampleThresholds(),
		Confidence: DefaultConfidenceThresholds(),
		Statistics: DefaultStatisticsConfig(),
	}
}

// ParseConfig extracts a Config from a raw JSON payload. Every field
// defaults independently: a missing or malformed field falls back to its
// default without disturbing the rest, and a completely unparsable
// payload yields the full default config. It never returns an error.
func ParseConfig(raw []byte) Config {
	return ParseConfigFrom(DefaultConfig(), raw)
}

// ParseConfigFrom is ParseConfig over a caller-supplied base instead of
// the stock defaults. Deployments tune the base (simulation count,
// priors) while per-request payloads refine thresholds on top of it.
func ParseConfigFrom(base Config, raw []byte) Config {
	cfg := base
	root := decodeObject(raw)
	if root == nil {
		return cfg
	}

	if st := decodeObject(root["sample_thresholds"]); st != nil {
		if tier := decodeObject(st["insufficient"]); tier != nil {
			applyInt(tier, "min_total_clicks", &cfg.Samples.Insufficient.MinTotalClicks)
			applyInt(tier, "min_total_cvs", &cfg.Samples.Insufficient.MinTotalCvs)
		}
		if tier := decodeObject(st["directional"]); tier != nil {
			applyInt(tier, "min_total_clicks", &cfg.Samples.Directional.MinTotalClicks)
			applyInt(tier, "min_total_cvs", &cfg.Samples.Directional.MinTotalCvs)
		}
		if tier := decodeObject(st["confident"]); tier != nil {
			applyInt(tier, "min_total_cvs", &cfg.Samples.Confident.MinTotalCvs)
			applyInt(tier, "min_per_variant_cvs", &cfg.Samples.Confident.MinPerVariantCvs)
		}
	}

	if ct := decodeObject(root["confidence_thresholds"]); ct != nil {
		applyMethod(ct, "method", &cfg.Confidence.Method)
		applyFloat(ct, "alpha", &cfg.Confidence.Alpha)
		applyFloat(ct, "min_effect", &cfg.Confidence.MinEffect)
	}

	return cfg
}

func decodeObject(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

func applyInt(obj map[string]json.RawMessage, key string, dst *int) {
	raw, ok := obj[key]
	if !ok {
		return
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil || v < 0 {
		return
	}
	*dst = v
}

func applyFloat(obj map[string]json.RawMessage, key string, dst *float64) {
	raw, ok := obj[key]
	if !ok {
		return
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	*dst = v
}

func applyMethod(obj map[string]json.RawMessage, key string, dst *string) {
	raw, ok := obj[key]
	if !ok {
		return
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	if v != "wilson" && v != "bayes" {
		return
	}
	*dst = v
}
