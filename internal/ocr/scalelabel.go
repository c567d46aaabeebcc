package ocr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arbovm/levenshtein"
)

// ErrNoScaleLabel is returned when recognized text contains no length with a
// known unit.
var ErrNoScaleLabel = errors.New("no scale label found")

// ScaleLabel is a physical length read from a data bar, e.g. "10 µm".
type ScaleLabel struct {
	// Raw is the matched text as recognized.
	Raw string `json:"raw"`

	Value float64 `json:"value"`

	// Unit is the canonical unit: "nm", "µm" or "mm".
	Unit string `json:"unit"`

	// Micrometers is Value converted to µm.
	Micrometers float64 `json:"micrometers"`
}

// unitFactors converts canonical units to micrometers.
var unitFactors = map[string]float64{
	"nm": 0.001,
	"µm": 1,
	"mm": 1000,
}

// unitSpellings maps the spellings seen in OCR output to canonical units.
// Tesseract often reads the micro sign as u, µ (U+00B5), μ (U+03BC), "ju" or
// "ur".
var unitSpellings = map[string]string{
	"nm":         "nm",
	"um":         "µm",
	"µm":         "µm",
	"μm":         "µm",
	"jum":        "µm",
	"urn":        "µm",
	"mm":         "mm",
	"nanometer":  "nm",
	"nanometre":  "nm",
	"micron":     "µm",
	"microns":    "µm",
	"micrometer": "µm",
	"micrometre": "µm",
	"millimeter": "mm",
	"millimetre": "mm",
}

// maxUnitDistance is the largest edit distance at which an OCR token is
// snapped to a known unit spelling.
const maxUnitDistance = 1

var labelPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([A-Za-zµμ]{2,10})`)

// ParseScaleLabel finds the first "<number> <unit>" pair in text whose unit
// is a known length unit.
//
// Units are matched case-insensitively. A token within edit distance 1 of a
// known spelling (e.g. "umn" or "micrn") is accepted when every spelling that
// close names the same unit. A comma decimal separator is accepted. Lengths
// labelled as working distance ("WD 10.1mm") are skipped.
//
// Returns ErrNoScaleLabel when nothing matches.
func ParseScaleLabel(text string) (ScaleLabel, error) {
	for _, idx := range labelPattern.FindAllStringSubmatchIndex(text, -1) {
		if isWorkingDistance(text[:idx[0]]) {
			continue
		}
		unit, ok := snapUnit(text[idx[4]:idx[5]])
		if !ok {
			continue
		}
		number := strings.ReplaceAll(text[idx[2]:idx[3]], ",", ".")
		value, err := strconv.ParseFloat(number, 64)
		if err != nil || value <= 0 {
			continue
		}
		return ScaleLabel{
			Raw:         text[idx[0]:idx[1]],
			Value:       value,
			Unit:        unit,
			Micrometers: value * unitFactors[unit],
		}, nil
	}
	return ScaleLabel{}, fmt.Errorf("%w in %q", ErrNoScaleLabel, strings.TrimSpace(text))
}

// isWorkingDistance reports whether the text before a match ends with a WD
// field label.
func isWorkingDistance(before string) bool {
	fields := strings.Fields(strings.ToUpper(before))
	if len(fields) == 0 {
		return false
	}
	last := strings.TrimRight(fields[len(fields)-1], ":=")
	return last == "WD"
}

// snapUnit returns the canonical unit for an OCR token.
func snapUnit(token string) (string, bool) {
	t := strings.ToLower(token)
	if unit, ok := unitSpellings[t]; ok {
		return unit, true
	}

	best, bestDist, ties := "", maxUnitDistance+1, 0
	for spelling, unit := range unitSpellings {
		d := levenshtein.Distance(t, spelling)
		switch {
		case d < bestDist:
			best, bestDist, ties = unit, d, 1
		case d == bestDist && unit != best:
			ties++
		}
	}
	if bestDist > maxUnitDistance || ties != 1 {
		return "", false
	}
	return best, true
}
