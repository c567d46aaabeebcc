package detection

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/ironsheep/particle-size-mcp/internal/imaging"
)

var (
	// ErrInvalidDetectionParams is returned by DetectionParams.Validate and by
	// the enum parsers.
	ErrInvalidDetectionParams = errors.New("invalid detection parameters")

	// ErrScaleNotSet is returned when detection runs without a valid scale.
	ErrScaleNotSet = errors.New("scale factor not set")
)

// Polarity says whether particles are darker or lighter than the background.
type Polarity int

const (
	// DarkOnLight: dark particles on a light background (foreground < threshold).
	DarkOnLight Polarity = iota
	// LightOnDark: light particles on a dark background (foreground > threshold).
	LightOnDark
)

var polarityNames = map[Polarity]string{
	DarkOnLight: "dark_on_light",
	LightOnDark: "light_on_dark",
}

// String returns the polarity name.
func (p Polarity) String() string {
	if name, ok := polarityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Polarity(%d)", int(p))
}

// ParsePolarity parses "dark_on_light" or "light_on_dark".
func ParsePolarity(s string) (Polarity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range polarityNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown polarity %q", ErrInvalidDetectionParams, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Polarity) MarshalText() ([]byte, error) {
	if _, ok := polarityNames[p]; !ok {
		return nil, fmt.Errorf("%w: unknown polarity %d", ErrInvalidDetectionParams, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Polarity) UnmarshalText(text []byte) error {
	parsed, err := ParsePolarity(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// DetectionParams configures a detection run.
type DetectionParams struct {
	Polarity Polarity `json:"polarity" yaml:"polarity"`

	// BottomExclusionPercent of the image height is excluded from analysis,
	// in [0, 100).
	BottomExclusionPercent float64 `json:"bottom_exclusion_percent" yaml:"bottom_exclusion_percent"`

	ThresholdMethod ThresholdMethod `json:"threshold_method" yaml:"threshold_method"`

	// ManualThreshold (0-255) is used only when ThresholdMethod is Manual.
	ManualThreshold int `json:"manual_threshold" yaml:"manual_threshold"`

	// MinArea is applied twice: to the pixel count of 4-connected components
	// before tracing, and to the traced polygon area.
	MinArea float64 `json:"min_area" yaml:"min_area"`

	MaxArea        float64 `json:"max_area" yaml:"max_area"`
	MinCircularity float64 `json:"min_circularity" yaml:"min_circularity"`
}

// DefaultDetectionParams returns the defaults for SEM micrographs with a
// standard data bar.
func DefaultDetectionParams() DetectionParams {
	return DetectionParams{
		Polarity:               DarkOnLight,
		BottomExclusionPercent: 6.5,
		ThresholdMethod:        Otsu,
		ManualThreshold:        FallbackThreshold,
		MinArea:                10,
		MaxArea:                100000,
		MinCircularity:         0.1,
	}
}

// Validate checks the parameter ranges.
func (p DetectionParams) Validate() error {
	if _, ok := polarityNames[p.Polarity]; !ok {
		return fmt.Errorf("%w: unknown polarity %d", ErrInvalidDetectionParams, int(p.Polarity))
	}
	if _, ok := methodNames[p.ThresholdMethod]; !ok {
		return fmt.Errorf("%w: unknown threshold method %d", ErrInvalidDetectionParams, int(p.ThresholdMethod))
	}
	switch {
	case !(p.BottomExclusionPercent >= 0 && p.BottomExclusionPercent < 100):
		return fmt.Errorf("%w: bottom exclusion must be in [0, 100), got %g",
			ErrInvalidDetectionParams, p.BottomExclusionPercent)
	case p.ThresholdMethod == Manual && (p.ManualThreshold < 0 || p.ManualThreshold > 255):
		return fmt.Errorf("%w: manual threshold must be within 0-255, got %d",
			ErrInvalidDetectionParams, p.ManualThreshold)
	case !(p.MinArea > 0):
		return fmt.Errorf("%w: min area must be > 0, got %g", ErrInvalidDetectionParams, p.MinArea)
	case !(p.MaxArea >= p.MinArea):
		return fmt.Errorf("%w: max area %g must be >= min area %g",
			ErrInvalidDetectionParams, p.MaxArea, p.MinArea)
	case !(p.MinCircularity >= 0 && p.MinCircularity <= 1):
		return fmt.Errorf("%w: min circularity must be in [0, 1], got %g",
			ErrInvalidDetectionParams, p.MinCircularity)
	}
	return nil
}

// Filter returns the contour acceptance bounds.
func (p DetectionParams) Filter() FilterParams {
	return FilterParams{MinArea: p.MinArea, MaxArea: p.MaxArea, MinCircularity: p.MinCircularity}
}

// Result is the outcome of DetectParticles.
type Result struct {
	// Particles are the accepted records, IDs from 1.
	Particles []ParticleRecord

	// Contours are the accepted boundaries, parallel to Particles.
	Contours []Contour

	// Threshold is the cut value that was applied.
	Threshold int

	// Method is the threshold method that produced Threshold.
	Method ThresholdMethod

	// Segmented is the number of contours traced before filtering.
	Segmented int

	// Overlay shows accepted boundaries with ID labels at their centroids.
	Overlay *image.RGBA
}

// DetectParticles runs the detection pipeline on a preprocessed raster.
//
// Parameters:
//   - img: The preprocessed grayscale image.
//   - scale: Pixels per micrometer; must be valid.
//   - params: Detection parameters; validated before use.
//
// Returns:
//   - *Result: Records, accepted contours, threshold and overlay. A blank
//     image gives an empty Particles slice, not an error.
//   - error: ErrScaleNotSet or ErrInvalidDetectionParams.
//
// # Pipeline
//
//  1. ROI mask excluding the bottom BottomExclusionPercent of rows
//  2. Threshold from the ROI samples (or the manual value)
//  3. Segment: binarize, remove small components, trace outer boundaries
//  4. MeasureContours: area, circularity and size filters, then measurement
//  5. Overlay of accepted boundaries and labels
func DetectParticles(img *image.Gray, scale imaging.ScaleFactor, params DetectionParams) (*Result, error) {
	if !scale.Valid() {
		return nil, fmt.Errorf("%w: got %g px/um", ErrScaleNotSet, float64(scale))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	b := img.Bounds()
	mask := imaging.ROIMask(b.Dy(), b.Dx(), params.BottomExclusionPercent)
	threshold := ResolveThreshold(imaging.MaskedSamples(img, mask), params.ThresholdMethod, params.ManualThreshold)

	contours := Segment(img, threshold, params.Polarity, mask, params.MinArea)
	records, accepted := MeasureContours(contours, scale, params.Filter())

	return &Result{
		Particles: records,
		Contours:  accepted,
		Threshold: threshold,
		Method:    params.ThresholdMethod,
		Segmented: len(contours),
		Overlay:   imaging.RenderOverlay(img, OverlayShapes(records, accepted), imaging.OverlayOptions{LineWidth: 2}),
	}, nil
}

// OverlayShapes pairs records with their contours for imaging.RenderOverlay.
// Records without a centroid get no label.
func OverlayShapes(records []ParticleRecord, contours []Contour) []imaging.OverlayShape {
	shapes := make([]imaging.OverlayShape, 0, len(records))
	for i, rec := range records {
		if i >= len(contours) {
			break
		}
		s := imaging.OverlayShape{ID: rec.ID, Boundary: contours[i]}
		if rec.Centroid != nil {
			at := rec.Centroid.Label()
			s.LabelAt = &at
		}
		shapes = append(shapes, s)
	}
	return shapes
}
