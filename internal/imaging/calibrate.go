package imaging

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCalibrationInput is returned when a pixel length or a physical
// length used for calibration is not strictly positive.
var ErrInvalidCalibrationInput = errors.New("invalid calibration input")

// ScaleFactor is the image scale in pixels per micrometer. Valid values are > 0.
type ScaleFactor float64

// PixelsToMicrometers converts a length in pixels to micrometers.
func (s ScaleFactor) PixelsToMicrometers(px float64) float64 {
	return px / float64(s)
}

// SquarePixelsToMicrometers converts an area in px² to µm².
func (s ScaleFactor) SquarePixelsToMicrometers(px2 float64) float64 {
	return px2 / (float64(s) * float64(s))
}

// Valid reports whether the scale factor can be used for measurement.
func (s ScaleFactor) Valid() bool {
	return s > 0 && !math.IsInf(float64(s), 0)
}

// Point represents a 2D pixel coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CalibrateScale converts a measured pixel length and the physical length it
// represents into a scale factor.
//
// Parameters:
//   - pixelLength: Length of the reference feature in pixels (> 0).
//   - physicalLengthUm: Known length of the same feature in micrometers (> 0).
//
// Returns:
//   - ScaleFactor: pixelLength / physicalLengthUm.
//   - error: ErrInvalidCalibrationInput when either input is <= 0 or NaN.
//
// CalibrateScale is pure; callers keep their previous scale when it fails.
func CalibrateScale(pixelLength, physicalLengthUm float64) (ScaleFactor, error) {
	if !(pixelLength > 0) {
		return 0, fmt.Errorf("%w: pixel length must be > 0, got %g", ErrInvalidCalibrationInput, pixelLength)
	}
	if !(physicalLengthUm > 0) {
		return 0, fmt.Errorf("%w: physical length must be > 0, got %g", ErrInvalidCalibrationInput, physicalLengthUm)
	}
	return ScaleFactor(pixelLength / physicalLengthUm), nil
}

// LineMeasurement describes a two-point line drawn over the image.
type LineMeasurement struct {
	Start         Point   `json:"start"`
	End           Point   `json:"end"`
	DeltaX        int     `json:"delta_x"`
	DeltaY        int     `json:"delta_y"`
	LengthPixels  float64 `json:"length_pixels"`
	AngleDegrees  float64 `json:"angle_degrees"`
	DisplayScale  float64 `json:"display_scale"`
	ImageLengthPx float64 `json:"image_length_pixels"`
}

// MeasureLine measures a line drawn between two points.
//
// displayScale maps display coordinates back to image pixels, e.g. a 2400 px
// wide micrograph shown on a 1200 px canvas has displayScale 2.0. Values <= 0
// are treated as 1.0.
func MeasureLine(p1, p2 Point, displayScale float64) LineMeasurement {
	if displayScale <= 0 {
		displayScale = 1.0
	}

	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	length := math.Hypot(float64(dx), float64(dy))

	// 0 = horizontal right, 90 = down
	angle := math.Atan2(float64(dy), float64(dx)) * 180 / math.Pi

	return LineMeasurement{
		Start:         p1,
		End:           p2,
		DeltaX:        dx,
		DeltaY:        dy,
		LengthPixels:  length,
		AngleDegrees:  math.Round(angle*10) / 10,
		DisplayScale:  displayScale,
		ImageLengthPx: length * displayScale,
	}
}

// CalibrateFromLine calibrates from a two-point line drawn along a feature of
// known physical length, typically the scale bar in the instrument data bar.
func CalibrateFromLine(p1, p2 Point, displayScale, physicalLengthUm float64) (ScaleFactor, error) {
	m := MeasureLine(p1, p2, displayScale)
	return CalibrateScale(m.ImageLengthPx, physicalLengthUm)
}
