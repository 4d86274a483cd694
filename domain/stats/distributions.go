package stats

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions provides unified access to the distribution math the
// engine needs. This keeps quantile/CDF calculations in one place instead
// of fragmenting approximations across the codebase.
type Distributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// NormalQuantile computes the quantile function for the standard normal (inverse CDF)
func (d *Distributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// ZScore returns the two-sided z critical value for a confidence level,
// e.g. 1.959964 for 0.95.
func (d *Distributions) ZScore(confidenceLevel float64) float64 {
	return d.NormalQuantile((1 + confidenceLevel) / 2)
}

// BetaQuantile computes the quantile function for a Beta(alpha, beta) distribution
func (d *Distributions) BetaQuantile(p, alpha, beta float64) float64 {
	if alpha <= 0 || beta <= 0 {
		return 0
	}
	return distuv.Beta{Alpha: alpha, Beta: beta}.Quantile(p)
}

// BetaSampler returns a Beta(alpha, beta) distribution bound to an explicit
// random source. All Monte-Carlo draws go through samplers created here so
// a seeded source reproduces runs bit-identically.
func (d *Distributions) BetaSampler(alpha, beta float64, src rand.Source) distuv.Beta {
	return distuv.Beta{Alpha: alpha, Beta: beta, Src: src}
}
