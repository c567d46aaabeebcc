package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one size metric over a particle population.
//
// The zero value (Count == 0) is returned for an empty sequence; callers must
// check Count before interpreting the other fields.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`

	// GeometricMean and GeometricStd are computed over the strictly positive
	// values only. Both are 0 when there are none.
	GeometricMean float64 `json:"geometric_mean"`
	GeometricStd  float64 `json:"geometric_std"`

	D10  float64 `json:"d10"`
	D50  float64 `json:"d50"`
	D90  float64 `json:"d90"`
	Span float64 `json:"span"`
}

// DValues are the 10th, 50th and 90th percentiles of a size distribution.
type DValues struct {
	D10 float64 `json:"d10"`
	D50 float64 `json:"d50"`
	D90 float64 `json:"d90"`
}

// ComputeStatistics summarizes a sequence of measurements.
//
// Parameters:
//   - values: Measurements of a single metric, in any order. Not modified.
//
// Returns:
//   - Stats: Count, sample mean and standard deviation (divisor n-1, 0 for a
//     single value), extremes, quartiles, geometric mean and standard
//     deviation of the positive subset, D-values and span. Empty input gives
//     the zero value.
//
// Quantiles interpolate linearly between order statistics at rank (n-1)·p.
func ComputeStatistics(values []float64) Stats {
	n := len(values)
	if n == 0 {
		return Stats{}
	}

	sorted := sortedCopy(values)
	d := dValuesSorted(sorted)

	s := Stats{
		Count:  n,
		Mean:   stat.Mean(sorted, nil),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Median: percentileSorted(sorted, 0.5),
		Q25:    percentileSorted(sorted, 0.25),
		Q75:    percentileSorted(sorted, 0.75),
		D10:    d.D10,
		D50:    d.D50,
		D90:    d.D90,
		Span:   ComputeSpan(d),
	}
	if n > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}

	logs := positiveLogs(sorted)
	switch len(logs) {
	case 0:
	case 1:
		s.GeometricMean = math.Exp(logs[0])
		s.GeometricStd = 1
	default:
		s.GeometricMean = math.Exp(stat.Mean(logs, nil))
		s.GeometricStd = math.Exp(stat.StdDev(logs, nil))
	}
	return s
}

// ComputeDValues returns the D10, D50 and D90 percentiles. Empty input gives
// the zero value.
func ComputeDValues(values []float64) DValues {
	if len(values) == 0 {
		return DValues{}
	}
	return dValuesSorted(sortedCopy(values))
}

// ComputeSpan returns the normalized distribution width (D90-D10)/D50, or 0
// when D50 is not positive.
func ComputeSpan(d DValues) float64 {
	if !(d.D50 > 0) {
		return 0
	}
	return (d.D90 - d.D10) / d.D50
}

// Percentile returns the p-th quantile (p in [0, 1]) of values using linear
// interpolation between order statistics. Empty input gives 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return percentileSorted(sortedCopy(values), p)
}

func dValuesSorted(sorted []float64) DValues {
	return DValues{
		D10: percentileSorted(sorted, 0.10),
		D50: percentileSorted(sorted, 0.50),
		D90: percentileSorted(sorted, 0.90),
	}
}

// percentileSorted interpolates at rank (n-1)·p of an ascending slice.
// stat.Quantile's LinInterp uses a different plotting position, so the rank
// arithmetic is done here.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch {
	case n == 1 || p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[n-1]
	}
	rank := float64(n-1) * p
	lo := int(math.Floor(rank))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

func sortedCopy(values []float64) []float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	return s
}

// positiveLogs returns ln(v) for every v > 0.
func positiveLogs(values []float64) []float64 {
	logs := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			logs = append(logs, math.Log(v))
		}
	}
	return logs
}

// positive returns the values strictly greater than zero, in input order.
func positive(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}
