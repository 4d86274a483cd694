package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig(t *testing.T) {
	t.Run("unparsable payload yields defaults", func(t *testing.T) {
		assert.Equal(t, DefaultConfig(), ParseConfig([]byte("not json")))
		assert.Equal(t, DefaultConfig(), ParseConfig(nil))
	})

	t.Run("partial payload overrides only present fields", func(t *testing.T) {
		cfg := ParseConfig([]byte(`{
			"sample_thresholds": {
				"confident": {"min_total_cvs": 250}
			},
			"confidence_thresholds": {"method": "wilson"}
		}`))

		assert.Equal(t, 250, cfg.Samples.Confident.MinTotalCvs)
		assert.Equal(t, DefaultSampleThresholds().Confident.MinPerVariantCvs, cfg.Samples.Confident.MinPerVariantCvs)
		assert.Equal(t, DefaultSampleThresholds().Insufficient, cfg.Samples.Insufficient)
		assert.Equal(t, "wilson", cfg.Confidence.Method)
		assert.Equal(t, DefaultConfidenceThresholds().Alpha, cfg.Confidence.Alpha)
	})

	t.Run("malformed fields default independently", func(t *testing.T) {
		cfg := ParseConfig([]byte(`{
			"sample_thresholds": {
				"directional": {"min_total_clicks": "lots", "min_total_cvs": 60},
				"insufficient": "broken"
			},
			"confidence_thresholds": {"method": "frequentist", "alpha": 0.01}
		}`))

		assert.Equal(t, DefaultSampleThresholds().Directional.MinTotalClicks, cfg.Samples.Directional.MinTotalClicks)
		assert.Equal(t, 60, cfg.Samples.Directional.MinTotalCvs)
		assert.Equal(t, DefaultSampleThresholds().Insufficient, cfg.Samples.Insufficient)
		assert.Equal(t, "bayes", cfg.Confidence.Method, "unknown method keeps the default")
		assert.Equal(t, 0.01, cfg.Confidence.Alpha)
	})

	t.Run("negative thresholds are rejected", func(t *testing.T) {
		cfg := ParseConfig([]byte(`{"sample_thresholds": {"confident": {"min_total_cvs": -5}}}`))
		assert.Equal(t, DefaultSampleThresholds().Confident.MinTotalCvs, cfg.Samples.Confident.MinTotalCvs)
	})
}

func TestParseConfigFrom(t *testing.T) {
	base := DefaultConfig()
	base.Statistics.Simulations = 2000
	base.Statistics.PriorAlpha = 5
	base.Statistics.PriorBeta = 95

	cfg := ParseConfigFrom(base, []byte(`{"confidence_thresholds": {"alpha": 0.01}}`))

	assert.Equal(t, 2000, cfg.Statistics.Simulations, "base tuning survives a request payload")
	assert.Equal(t, 5.0, cfg.Statistics.PriorAlpha)
	assert.Equal(t, 95.0, cfg.Statistics.PriorBeta)
	assert.Equal(t, 0.01, cfg.Confidence.Alpha)

	assert.Equal(t, base, ParseConfigFrom(base, nil), "empty payload yields the base unchanged")
}
