package detection

import (
	"fmt"
	"math"
	"strings"
)

// FallbackThreshold is the cut value used whenever a histogram method cannot
// produce a threshold (empty sample, a single intensity, or no convergence).
const FallbackThreshold = 128

// ThresholdMethod selects how the binarization cut value is obtained.
type ThresholdMethod int

const (
	// Otsu maximizes the between-class variance.
	Otsu ThresholdMethod = iota
	// Li minimizes the cross-entropy between the image and its binarization.
	Li
	// Yen maximizes the entropic correlation criterion.
	Yen
	// Triangle uses the longest perpendicular from the histogram to the line
	// joining its peak and far end.
	Triangle
	// Isodata iterates toward the midpoint of the two class means.
	Isodata
	// Manual uses DetectionParams.ManualThreshold as given.
	Manual
)

// AutoMethods lists the histogram methods in comparison order.
var AutoMethods = []ThresholdMethod{Otsu, Li, Yen, Triangle, Isodata}

var methodNames = map[ThresholdMethod]string{
	Otsu:     "otsu",
	Li:       "li",
	Yen:      "yen",
	Triangle: "triangle",
	Isodata:  "isodata",
	Manual:   "manual",
}

// thresholdFuncs maps each histogram method to its implementation. A false
// second return means the method could not produce a value.
var thresholdFuncs = map[ThresholdMethod]func(h histogram) (float64, bool){
	Otsu:     otsuThreshold,
	Li:       liThreshold,
	Yen:      yenThreshold,
	Triangle: triangleThreshold,
	Isodata:  isodataThreshold,
}

// String returns the lowercase method name.
func (m ThresholdMethod) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ThresholdMethod(%d)", int(m))
}

// ParseThresholdMethod parses a method name, case-insensitively.
func ParseThresholdMethod(s string) (ThresholdMethod, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown threshold method %q", ErrInvalidDetectionParams, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m ThresholdMethod) MarshalText() ([]byte, error) {
	if _, ok := methodNames[m]; !ok {
		return nil, fmt.Errorf("%w: unknown threshold method %d", ErrInvalidDetectionParams, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ThresholdMethod) UnmarshalText(text []byte) error {
	parsed, err := ParseThresholdMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ComputeThreshold computes a global binarization threshold from intensity
// samples, normally the ROI pixels of the preprocessed image.
//
// Parameters:
//   - samples: 8-bit intensities. Order does not matter.
//   - m: The histogram method. Manual is not a histogram method and resolves
//     to Otsu here; use ResolveThreshold to honour a manual value.
//
// Returns the threshold as an integer intensity. The function never fails:
// empty samples, single-intensity samples and methods that find no solution
// all return FallbackThreshold. Fractional results (Li) are truncated.
//
// # Histogram
//
// Every method works on the integer histogram spanning the sample minimum
// to maximum, one bin per intensity, so bin centres are the intensities
// themselves.
func ComputeThreshold(samples []uint8, m ThresholdMethod) int {
	fn, ok := thresholdFuncs[m]
	if !ok {
		fn = otsuThreshold
	}

	h, ok := newHistogram(samples)
	if !ok {
		return FallbackThreshold
	}

	t, ok := fn(h)
	if !ok || math.IsNaN(t) || math.IsInf(t, 0) {
		return FallbackThreshold
	}
	return int(t)
}

// CompareThresholdMethods runs every histogram method on the same samples.
// The map has one entry per element of AutoMethods.
func CompareThresholdMethods(samples []uint8) map[ThresholdMethod]int {
	out := make(map[ThresholdMethod]int, len(AutoMethods))
	for _, m := range AutoMethods {
		out[m] = ComputeThreshold(samples, m)
	}
	return out
}

// ResolveThreshold returns the threshold detection will use: the manual value
// when the method is Manual, otherwise ComputeThreshold on the samples.
func ResolveThreshold(samples []uint8, method ThresholdMethod, manual int) int {
	if method == Manual {
		return manual
	}
	return ComputeThreshold(samples, method)
}

// histogram holds per-intensity counts from lo to lo+len(counts)-1. The first
// and last bins are always non-empty.
type histogram struct {
	lo     int
	counts []float64
}

// newHistogram builds the min..max histogram. It reports false when the
// samples are empty or hold a single intensity.
func newHistogram(samples []uint8) (histogram, bool) {
	if len(samples) == 0 {
		return histogram{}, false
	}

	var full [256]float64
	lo, hi := 255, 0
	for _, v := range samples {
		full[v]++
		if int(v) < lo {
			lo = int(v)
		}
		if int(v) > hi {
			hi = int(v)
		}
	}
	if lo == hi {
		return histogram{}, false
	}

	counts := make([]float64, hi-lo+1)
	copy(counts, full[lo:hi+1])
	return histogram{lo: lo, counts: counts}, true
}

func (h histogram) center(i int) float64 {
	return float64(h.lo + i)
}

// otsuThreshold picks the bin that maximizes the between-class variance
// w1·w2·(µ1−µ2)², with class 1 holding bins up to and including the cut.
func otsuThreshold(h histogram) (float64, bool) {
	n := len(h.counts)
	w1 := make([]float64, n)
	m1 := make([]float64, n)
	var cw, cm float64
	for i, c := range h.counts {
		cw += c
		cm += c * h.center(i)
		w1[i] = cw
		m1[i] = cm / cw
	}

	w2 := make([]float64, n)
	m2 := make([]float64, n)
	cw, cm = 0, 0
	for i := n - 1; i >= 0; i-- {
		cw += h.counts[i]
		cm += h.counts[i] * h.center(i)
		w2[i] = cw
		m2[i] = cm / cw
	}

	best, bestIdx := math.Inf(-1), -1
	for i := 0; i < n-1; i++ {
		d := m1[i] - m2[i+1]
		v := w1[i] * w2[i+1] * d * d
		if v > best {
			best, bestIdx = v, i
		}
	}
	if bestIdx < 0 {
		return 0, false
	}
	return h.center(bestIdx), true
}

// liThreshold runs Li's iterative minimum cross-entropy search.
//
// Intensities are shifted so the minimum is 0, the iteration starts at the
// sample mean and stops when successive estimates differ by no more than
// half an intensity level, regardless of which levels are occupied.
func liThreshold(h histogram) (float64, bool) {
	const tolerance = 0.5

	var total, sum float64
	for i, c := range h.counts {
		total += c
		sum += c * float64(i)
	}

	next := sum / total
	cur := -2 * tolerance

	for iter := 0; math.Abs(next-cur) > tolerance; iter++ {
		if iter > 1000 {
			return 0, false
		}
		cur = next

		var wb, sb, wf, sf float64
		for i, c := range h.counts {
			if float64(i) > cur {
				wf += c
				sf += c * float64(i)
			} else {
				wb += c
				sb += c * float64(i)
			}
		}
		if wb == 0 || wf == 0 {
			return 0, false
		}
		meanBack := sb / wb
		meanFore := sf / wf

		if meanBack == 0 {
			break
		}
		next = (meanBack - meanFore) / (math.Log(meanBack) - math.Log(meanFore))
	}

	return next + float64(h.lo), true
}

// yenThreshold maximizes Yen's criterion
// ln( P1(1−P1))² / (Σ₀ᵗ p² · Σₜ₊₁ p²) ).
func yenThreshold(h histogram) (float64, bool) {
	n := len(h.counts)
	var total float64
	for _, c := range h.counts {
		total += c
	}

	pmf := make([]float64, n)
	for i, c := range h.counts {
		pmf[i] = c / total
	}

	p1 := make([]float64, n)
	p1sq := make([]float64, n)
	var a, b float64
	for i, p := range pmf {
		a += p
		b += p * p
		p1[i] = a
		p1sq[i] = b
	}
	p2sq := make([]float64, n)
	b = 0
	for i := n - 1; i >= 0; i-- {
		b += pmf[i] * pmf[i]
		p2sq[i] = b
	}

	best, bestIdx := math.Inf(-1), -1
	for i := 0; i < n-1; i++ {
		x := p1[i] * (1 - p1[i])
		crit := math.Log(x * x / (p1sq[i] * p2sq[i+1]))
		if crit > best {
			best, bestIdx = crit, i
		}
	}
	if bestIdx < 0 {
		return 0, false
	}
	return h.center(bestIdx), true
}

// triangleThreshold draws a line from the histogram peak to the far end of
// the longer tail and returns the bin with the greatest perpendicular
// distance below that line.
func triangleThreshold(h histogram) (float64, bool) {
	hist := append([]float64(nil), h.counts...)
	n := len(hist)

	peak := 0
	for i, c := range hist {
		if c > hist[peak] {
			peak = i
		}
	}
	low, high := -1, -1
	for i, c := range hist {
		if c > 0 {
			if low < 0 {
				low = i
			}
			high = i
		}
	}
	if low == high {
		return 0, false
	}
	peakHeight := hist[peak]

	// Work on the longer side of the peak.
	flip := peak-low < high-peak
	if flip {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			hist[i], hist[j] = hist[j], hist[i]
		}
		low = n - high - 1
		peak = n - peak - 1
	}

	width := float64(peak - low)
	norm := math.Hypot(peakHeight, width)
	ph := peakHeight / norm
	w := width / norm

	best, level := math.Inf(-1), -1
	for x := 0; x < peak-low; x++ {
		length := ph*float64(x) - w*hist[x+low]
		if length > best {
			best, level = length, x+low
		}
	}
	if level < 0 {
		return 0, false
	}
	if flip {
		level = n - level - 1
	}
	return h.center(level), true
}

// isodataThreshold returns the first bin t where the midpoint of the mean
// below-or-at t and the mean above t lies in [t, t+1).
func isodataThreshold(h histogram) (float64, bool) {
	n := len(h.counts)
	var totalW, totalS float64
	for i, c := range h.counts {
		totalW += c
		totalS += c * h.center(i)
	}

	var cw, cs float64
	for i := 0; i < n-1; i++ {
		cw += h.counts[i]
		cs += h.counts[i] * h.center(i)

		lower := cs / cw
		higher := (totalS - cs) / (totalW - cw)
		d := (lower+higher)/2 - h.center(i)
		if d >= 0 && d < 1 {
			return h.center(i), true
		}
	}
	return 0, false
}
