package ocr

import (
	"errors"
	"math"
	"testing"
)

func TestParseScaleLabel(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64 // micrometers
		unit string
	}{
		{"micro sign", "10 µm", 10, "µm"},
		{"greek mu", "10μm", 10, "µm"},
		{"ascii u", "20 um", 20, "µm"},
		{"upper case", "20 UM", 20, "µm"},
		{"nanometers", "500 nm", 0.5, "nm"},
		{"millimeters", "1 mm", 1000, "mm"},
		{"decimal point", "2.5 µm", 2.5, "µm"},
		{"decimal comma", "2,5 µm", 2.5, "µm"},
		{"misread micro", "50 urn", 50, "µm"},
		{"word unit", "100 microns", 100, "µm"},
		{"edit distance one", "5 micrn", 5, "µm"},
		{"extra letter", "3 umn", 3, "µm"},
		{
			name: "data bar with fields",
			text: "SEM HV: 15.0 kV  WD: 10.2 mm  Mag x5,000  10 µm  SE",
			want: 10,
			unit: "µm",
		},
		{"working distance without space", "WD10mm 200nm", 0.2, "nm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScaleLabel(tt.text)
			if err != nil {
				t.Fatalf("ParseScaleLabel(%q): %v", tt.text, err)
			}
			if got.Unit != tt.unit {
				t.Errorf("unit: got %q, want %q", got.Unit, tt.unit)
			}
			if math.Abs(got.Micrometers-tt.want) > 1e-12 {
				t.Errorf("micrometers: got %v, want %v", got.Micrometers, tt.want)
			}
			if got.Raw == "" {
				t.Error("raw match is empty")
			}
		})
	}
}

func TestParseScaleLabel_NoLabel(t *testing.T) {
	inputs := []string{
		"",
		"SEM HV 15.0 kV",
		"Mag x5000",
		"0 um",
		"WD 8.5 mm",
		"10 vm", // equally close to um, nm and mm
	}
	for _, in := range inputs {
		if _, err := ParseScaleLabel(in); !errors.Is(err, ErrNoScaleLabel) {
			t.Errorf("%q: got %v, want ErrNoScaleLabel", in, err)
		}
	}
}

func TestSnapUnit(t *testing.T) {
	tests := []struct {
		token string
		want  string
		ok    bool
	}{
		{"um", "µm", true},
		{"Nm", "nm", true},
		{"MM", "mm", true},
		{"jum", "µm", true},
		{"micrometre", "µm", true},
		{"nanometr", "nm", true},
		{"kv", "", false},
		{"xm", "", false},
		{"second", "", false},
	}
	for _, tt := range tests {
		got, ok := snapUnit(tt.token)
		if got != tt.want || ok != tt.ok {
			t.Errorf("snapUnit(%q): got %q, %v; want %q, %v", tt.token, got, ok, tt.want, tt.ok)
		}
	}
}
