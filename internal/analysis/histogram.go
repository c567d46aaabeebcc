package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidBins is returned when a histogram is requested with fewer than
// one bin.
var ErrInvalidBins = errors.New("histogram bins must be >= 1")

// DefaultBins is the bin count used when none is requested.
const DefaultBins = 50

// HistogramData holds bin counts and the bins+1 edges that bound them. Bin i
// covers [Edges[i], Edges[i+1]); the last bin also includes its upper edge.
type HistogramData struct {
	Counts []int     `json:"counts"`
	Edges  []float64 `json:"edges"`
	Log    bool      `json:"log_scale"`
}

// Histogram bins the values into equal-width bins spanning min..max.
//
// When every value is equal the range is widened to [v-0.5, v+0.5]. Empty
// input gives empty Counts and Edges.
func Histogram(values []float64, bins int) (HistogramData, error) {
	if bins < 1 {
		return HistogramData{}, fmt.Errorf("%w: got %d", ErrInvalidBins, bins)
	}
	if len(values) == 0 {
		return HistogramData{Counts: []int{}, Edges: []float64{}}, nil
	}

	sorted := sortedCopy(values)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	edges[0], edges[bins] = lo, hi
	return HistogramData{Counts: countBins(sorted, edges), Edges: edges}, nil
}

// LogHistogram bins the strictly positive values into bins whose edges are
// evenly spaced in log scale between the smallest and largest value.
//
// Non-positive values are ignored. When no value is positive, or the input is
// empty, Counts and Edges are empty.
func LogHistogram(values []float64, bins int) (HistogramData, error) {
	if bins < 1 {
		return HistogramData{}, fmt.Errorf("%w: got %d", ErrInvalidBins, bins)
	}
	pos := positive(values)
	if len(pos) == 0 {
		return HistogramData{Counts: []int{}, Edges: []float64{}, Log: true}, nil
	}

	sorted := sortedCopy(pos)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	edges := floats.LogSpan(make([]float64, bins+1), lo, hi)
	// Pin the end points so exp(log(x)) rounding cannot push a sample out.
	edges[0], edges[bins] = lo, hi
	for i := 1; i < bins; i++ {
		edges[i] = math.Min(math.Max(edges[i], lo), hi)
	}
	return HistogramData{Counts: countBins(sorted, edges), Edges: edges, Log: true}, nil
}

// countBins counts ascending samples into the bins bounded by edges. The
// last bin is closed on the right.
func countBins(sorted, edges []float64) []int {
	dividers := append([]float64(nil), edges...)
	last := len(dividers) - 1
	dividers[last] = math.Nextafter(dividers[last], math.Inf(1))

	weights := stat.Histogram(nil, dividers, sorted, nil)
	counts := make([]int, len(weights))
	for i, w := range weights {
		counts[i] = int(w)
	}
	return counts
}
