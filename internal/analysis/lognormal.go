package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LognormalFit is a two-parameter lognormal distribution fitted with the
// location fixed at 0.
type LognormalFit struct {
	// Shape is σ, the standard deviation of ln(x).
	Shape float64 `json:"shape"`
	// Loc is always 0.
	Loc float64 `json:"loc"`
	// Scale is exp(µ), the median of the fitted distribution.
	Scale float64 `json:"scale"`

	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`

	// RSquared compares the fitted CDF to the empirical CDF, clamped to [0, 1].
	RSquared float64 `json:"r_squared"`
}

// Distribution returns the fitted distribution.
func (f LognormalFit) Distribution() distuv.LogNormal {
	return distuv.LogNormal{Mu: math.Log(f.Scale), Sigma: f.Shape}
}

// FitLognormal fits a lognormal distribution to the positive values by
// maximum likelihood.
//
// With the location fixed at 0 the estimates are closed-form: µ is the mean
// of ln(x) and σ its population standard deviation. Mean, Std and Median are
// the moments of the fitted distribution.
//
// Returns (nil, false) when fewer than two values are positive or all
// positive values are equal, since no non-degenerate fit exists. Neither case
// is an error.
func FitLognormal(values []float64) (*LognormalFit, bool) {
	pos := positive(values)
	if len(pos) < 2 {
		return nil, false
	}

	logs := positiveLogs(pos)
	mu, sampleVar := stat.MeanVariance(logs, nil)
	n := float64(len(logs))
	sigma := math.Sqrt(sampleVar * (n - 1) / n)
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, false
	}

	fit := &LognormalFit{Shape: sigma, Loc: 0, Scale: math.Exp(mu)}
	dist := fit.Distribution()
	fit.Mean = dist.Mean()
	fit.Std = dist.StdDev()
	fit.Median = dist.Median()
	fit.RSquared = cdfRSquared(pos, dist)
	return fit, true
}

// cdfRSquared is the coefficient of determination between the empirical CDF
// (rank/n at each sorted sample) and the fitted CDF at the same points.
func cdfRSquared(values []float64, dist distuv.LogNormal) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	empirical := make([]float64, n)
	for i := range empirical {
		empirical[i] = float64(i+1) / float64(n)
	}
	meanEmp := stat.Mean(empirical, nil)

	var ssRes, ssTot float64
	for i, x := range sorted {
		r := empirical[i] - dist.CDF(x)
		ssRes += r * r
		t := empirical[i] - meanEmp
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return clamp01(1 - ssRes/ssTot)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
