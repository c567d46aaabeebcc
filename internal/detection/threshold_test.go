package detection

import (
	"errors"
	"testing"
)

// bimodal returns n samples at each of two intensities.
func bimodal(a, b uint8, n int) []uint8 {
	s := make([]uint8, 0, 2*n)
	for i := 0; i < n; i++ {
		s = append(s, a, b)
	}
	return s
}

// pseudoRandomSamples returns deterministic samples from a linear
// congruential generator.
func pseudoRandomSamples(n int, seed uint32) []uint8 {
	s := make([]uint8, n)
	x := seed
	for i := range s {
		x = x*1664525 + 1013904223
		s[i] = uint8(x >> 24)
	}
	return s
}

func TestComputeThreshold_DegenerateFallsBack(t *testing.T) {
	inputs := map[string][]uint8{
		"empty":        nil,
		"single value": {77},
		"uniform":      bimodal(200, 200, 500),
		"all zero":     make([]uint8, 64),
	}

	methods := append(append([]ThresholdMethod(nil), AutoMethods...), Manual)
	for name, samples := range inputs {
		for _, m := range methods {
			if got := ComputeThreshold(samples, m); got != FallbackThreshold {
				t.Errorf("%s / %s: got %d, want %d", name, m, got, FallbackThreshold)
			}
		}
	}

	if FallbackThreshold != 128 {
		t.Errorf("FallbackThreshold: got %d, want 128", FallbackThreshold)
	}
}

func TestComputeThreshold_TwoLevels(t *testing.T) {
	samples := bimodal(50, 200, 1000)

	tests := []struct {
		method ThresholdMethod
		want   int
	}{
		{Otsu, 50},
		{Li, 125},
		{Yen, 50},
		{Triangle, 51},
		{Isodata, 125},
		{Manual, 50}, // resolves to Otsu
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			if got := ComputeThreshold(samples, tt.method); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

// twoPeaks returns samples from two triangular peaks, one centred at 70 with
// half width 40 and a lower one centred at 173 with half width 30. Only
// intensities divisible by step are kept, as after a levels stretch.
func twoPeaks(step int) []uint8 {
	dist := func(a, b int) int {
		if a > b {
			return a - b
		}
		return b - a
	}

	var s []uint8
	for v := 0; v < 256; v += step {
		n := 10*max(0, 40-dist(v, 70)) + 7*max(0, 30-dist(v, 173))
		for i := 0; i < n; i++ {
			s = append(s, uint8(v))
		}
	}
	return s
}

// quantize clears the low bits of every sample so only every step-th
// intensity is occupied. step must be a power of two.
func quantize(samples []uint8, step uint8) []uint8 {
	out := make([]uint8, len(samples))
	for i, v := range samples {
		out[i] = v &^ (step - 1)
	}
	return out
}

func TestComputeThreshold_ReferenceValues(t *testing.T) {
	dense := twoPeaks(1)
	gapped := twoPeaks(4)
	noisy := quantize(pseudoRandomSamples(500, 42), 4)

	tests := []struct {
		name    string
		samples []uint8
		method  ThresholdMethod
		want    int
	}{
		{"dense otsu", dense, Otsu, 109},
		{"dense li", dense, Li, 110},
		{"dense yen", dense, Yen, 93},
		{"dense triangle", dense, Triangle, 110},
		{"dense isodata", dense, Isodata, 121},

		{"gapped otsu", gapped, Otsu, 108},
		{"gapped li", gapped, Li, 110},
		{"gapped yen", gapped, Yen, 92},
		{"gapped triangle", gapped, Triangle, 69},
		{"gapped isodata", gapped, Isodata, 121},

		// Stopping at half the level spacing (2) instead of half an
		// intensity would give 110 here.
		{"quantized noise li", noisy, Li, 104},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeThreshold(tt.samples, tt.method); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeThreshold_WithinSampleRange(t *testing.T) {
	for seed := uint32(1); seed <= 20; seed++ {
		samples := pseudoRandomSamples(500, seed)
		lo, hi := 255, 0
		for _, v := range samples {
			if int(v) < lo {
				lo = int(v)
			}
			if int(v) > hi {
				hi = int(v)
			}
		}

		for _, m := range AutoMethods {
			got := ComputeThreshold(samples, m)
			if got == FallbackThreshold {
				continue
			}
			if got < lo || got > hi {
				t.Errorf("seed %d %s: threshold %d outside sample range [%d, %d]", seed, m, got, lo, hi)
			}
		}
	}
}

func TestComputeThreshold_Deterministic(t *testing.T) {
	samples := pseudoRandomSamples(1000, 42)
	for _, m := range AutoMethods {
		if ComputeThreshold(samples, m) != ComputeThreshold(samples, m) {
			t.Errorf("%s: repeated calls disagree", m)
		}
	}
}

func TestCompareThresholdMethods(t *testing.T) {
	got := CompareThresholdMethods(bimodal(50, 200, 100))
	if len(got) != len(AutoMethods) {
		t.Fatalf("got %d methods, want %d", len(got), len(AutoMethods))
	}
	if _, ok := got[Manual]; ok {
		t.Error("comparison should not include Manual")
	}
	for _, m := range AutoMethods {
		if got[m] != ComputeThreshold(bimodal(50, 200, 100), m) {
			t.Errorf("%s: comparison %d differs from ComputeThreshold", m, got[m])
		}
	}

	for m, v := range CompareThresholdMethods(nil) {
		if v != FallbackThreshold {
			t.Errorf("empty samples %s: got %d, want fallback", m, v)
		}
	}
}

func TestResolveThreshold(t *testing.T) {
	samples := bimodal(50, 200, 100)

	if got := ResolveThreshold(samples, Manual, 90); got != 90 {
		t.Errorf("manual: got %d, want 90", got)
	}
	if got := ResolveThreshold(samples, Isodata, 90); got != 125 {
		t.Errorf("isodata: got %d, want 125", got)
	}
	if got := ResolveThreshold(nil, Li, 90); got != FallbackThreshold {
		t.Errorf("empty li: got %d, want fallback", got)
	}
}

func TestParseThresholdMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    ThresholdMethod
		wantErr bool
	}{
		{"otsu", Otsu, false},
		{"Li", Li, false},
		{" YEN ", Yen, false},
		{"triangle", Triangle, false},
		{"isodata", Isodata, false},
		{"manual", Manual, false},
		{"auto", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseThresholdMethod(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDetectionParams) {
				t.Errorf("%q: got error %v, want ErrInvalidDetectionParams", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%q: got %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestThresholdMethod_Unknown(t *testing.T) {
	if _, err := ThresholdMethod(99).MarshalText(); !errors.Is(err, ErrInvalidDetectionParams) {
		t.Errorf("MarshalText: got %v, want ErrInvalidDetectionParams", err)
	}
	if got := ThresholdMethod(99).String(); got != "ThresholdMethod(99)" {
		t.Errorf("String: got %q", got)
	}

	var m ThresholdMethod
	if err := m.UnmarshalText([]byte("kittler")); err == nil {
		t.Error("UnmarshalText should reject unknown names")
	}
	if err := m.UnmarshalText([]byte("triangle")); err != nil || m != Triangle {
		t.Errorf("UnmarshalText(triangle): got %v, %v", m, err)
	}
}
