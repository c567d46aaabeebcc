package analysis

import (
	"errors"
	"math"
	"testing"
)

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHistogram(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		bins   int
		counts []int
		lo, hi float64
	}{
		{
			name:   "even bins",
			values: []float64{10, 0, 1, 2, 3, 4, 5, 6, 7, 8},
			bins:   5,
			counts: []int{2, 2, 2, 2, 2},
			lo:     0,
			hi:     10,
		},
		{
			name:   "maximum lands in last bin",
			values: []float64{0, 4},
			bins:   2,
			counts: []int{1, 1},
			lo:     0,
			hi:     4,
		},
		{
			name:   "single bin",
			values: []float64{3, 1, 2},
			bins:   1,
			counts: []int{3},
			lo:     1,
			hi:     3,
		},
		{
			name:   "all equal widens range",
			values: []float64{5, 5, 5},
			bins:   3,
			counts: []int{0, 3, 0},
			lo:     4.5,
			hi:     5.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Histogram(tt.values, tt.bins)
			if err != nil {
				t.Fatalf("Histogram: %v", err)
			}
			if !intsEqual(h.Counts, tt.counts) {
				t.Errorf("counts: got %v, want %v", h.Counts, tt.counts)
			}
			if len(h.Edges) != tt.bins+1 {
				t.Fatalf("got %d edges, want %d", len(h.Edges), tt.bins+1)
			}
			if h.Edges[0] != tt.lo || h.Edges[tt.bins] != tt.hi {
				t.Errorf("range: got [%v, %v], want [%v, %v]", h.Edges[0], h.Edges[tt.bins], tt.lo, tt.hi)
			}
			if h.Log {
				t.Error("linear histogram flagged as log")
			}
		})
	}
}

func TestHistogram_EmptyAndInvalid(t *testing.T) {
	h, err := Histogram(nil, 10)
	if err != nil || len(h.Counts) != 0 || len(h.Edges) != 0 {
		t.Errorf("empty: got %+v, %v", h, err)
	}

	for _, bins := range []int{0, -4} {
		if _, err := Histogram([]float64{1, 2}, bins); !errors.Is(err, ErrInvalidBins) {
			t.Errorf("bins %d: got %v, want ErrInvalidBins", bins, err)
		}
		if _, err := LogHistogram([]float64{1, 2}, bins); !errors.Is(err, ErrInvalidBins) {
			t.Errorf("log bins %d: got %v, want ErrInvalidBins", bins, err)
		}
	}
}

func TestLogHistogram(t *testing.T) {
	h, err := LogHistogram([]float64{1000, 2, -5, 0, 1, 20, 200}, 3)
	if err != nil {
		t.Fatalf("LogHistogram: %v", err)
	}
	if !h.Log {
		t.Error("log histogram not flagged")
	}
	if want := []int{2, 1, 2}; !intsEqual(h.Counts, want) {
		t.Errorf("counts: got %v, want %v", h.Counts, want)
	}

	want := []float64{1, 10, 100, 1000}
	for i, e := range h.Edges {
		if math.Abs(e-want[i]) > 1e-9*want[i] {
			t.Errorf("edge %d: got %v, want %v", i, e, want[i])
		}
	}
	if h.Edges[0] != 1 || h.Edges[3] != 1000 {
		t.Errorf("end points must be exact, got %v", h.Edges)
	}
}

func TestLogHistogram_Degenerate(t *testing.T) {
	h, err := LogHistogram([]float64{-1, 0}, 4)
	if err != nil || len(h.Counts) != 0 || len(h.Edges) != 0 {
		t.Errorf("no positive values: got %+v, %v", h, err)
	}

	h, err = LogHistogram([]float64{3, 3}, 2)
	if err != nil {
		t.Fatalf("LogHistogram: %v", err)
	}
	if want := []int{0, 2}; !intsEqual(h.Counts, want) {
		t.Errorf("equal values: got %v, want %v", h.Counts, want)
	}
}
