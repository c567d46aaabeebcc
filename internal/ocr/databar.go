package ocr

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/particle-size-mcp/internal/detection"
	"github.com/ironsheep/particle-size-mcp/internal/imaging"
)

// ErrNoScaleBar is returned when the data bar holds no horizontal bar long
// enough to be a scale bar.
var ErrNoScaleBar = errors.New("no scale bar found")

// MinScaleBarLength is the shortest run, in pixels, accepted as a scale bar.
const MinScaleBarLength = 10

// ocrUpscale enlarges the data bar before recognition. Data bar glyphs are
// often under 15 px tall, below what Tesseract reads reliably.
const ocrUpscale = 2.0

// ScaleBar is the longest horizontal run of bright pixels in the data bar.
// Coordinates are in the full image.
type ScaleBar struct {
	X1       int `json:"x1"` // first pixel of the run
	X2       int `json:"x2"` // last pixel of the run
	Y        int `json:"y"`
	LengthPx int `json:"length_px"`
}

// DataBarReading is what ReadDataBar recovered from the bottom strip of a
// micrograph.
type DataBarReading struct {
	// Text is the raw OCR output.
	Text string `json:"text"`

	// Label is the parsed scale label, nil when none was recognized.
	Label *ScaleLabel `json:"label,omitempty"`

	// Bar is the detected scale bar, nil when none was found.
	Bar *ScaleBar `json:"bar,omitempty"`

	// Scale is Bar.LengthPx / Label.Micrometers, 0 unless both were found.
	Scale imaging.ScaleFactor `json:"suggested_scale_px_per_um"`

	// Top is the first image row of the data bar.
	Top int `json:"data_bar_top"`
}

// ReadDataBar reads the instrument data bar that the analysis ROI excludes
// and suggests a scale factor from it.
//
// Parameters:
//   - img: The analysis raster (original, not preprocessed).
//   - bottomExclusionPercent: Height share of the data bar, as for the ROI.
//   - rec: OCR engine; a nil recognizer skips text recognition.
//
// Returns:
//   - *DataBarReading: Text, label, bar and, when both label and bar are
//     present, the suggested scale. A reading with a missing label or bar is
//     still returned so the caller can calibrate by hand.
//   - error: Only when the strip cannot be cropped or OCR itself fails.
//
// # Algorithm
//
//  1. Crop the bottom ExcludedRows(height, percent) rows
//  2. OCR an upscaled copy of the strip and parse "<number> <unit>"
//  3. Threshold the strip with Otsu and take the longest horizontal run of
//     pixels brighter than the threshold as the scale bar
//  4. Scale = bar length / label length via imaging.CalibrateScale
func ReadDataBar(img *image.Gray, bottomExclusionPercent float64, rec TextRecognizer) (*DataBarReading, error) {
	strip, top, err := imaging.CropDataBar(img, bottomExclusionPercent, 1)
	if err != nil {
		return nil, err
	}

	reading := &DataBarReading{Top: top}

	if rec != nil {
		large, _, err := imaging.CropDataBar(img, bottomExclusionPercent, ocrUpscale)
		if err != nil {
			return nil, err
		}
		res, err := rec.Recognize(large)
		if err != nil {
			return nil, err
		}
		reading.Text = res.FullText
		if label, err := ParseScaleLabel(res.FullText); err == nil {
			reading.Label = &label
		}
	}

	if bar, err := FindScaleBar(strip); err == nil {
		bar.Y += top
		reading.Bar = &bar
	}

	if reading.Label != nil && reading.Bar != nil {
		scale, err := imaging.CalibrateScale(float64(reading.Bar.LengthPx), reading.Label.Micrometers)
		if err == nil {
			reading.Scale = scale
		}
	}
	return reading, nil
}

// FindScaleBar returns the longest horizontal run of bright pixels in a data
// bar strip. Coordinates are relative to the strip.
//
// Bright means above the strip's Otsu threshold. Ties keep the topmost,
// then leftmost, run. Runs shorter than MinScaleBarLength are rejected with
// ErrNoScaleBar.
func FindScaleBar(strip *image.Gray) (ScaleBar, error) {
	b := strip.Bounds()
	samples := imaging.MaskedSamples(strip, nil)
	threshold := detection.ComputeThreshold(samples, detection.Otsu)

	var best ScaleBar
	for y := 0; y < b.Dy(); y++ {
		off := strip.PixOffset(b.Min.X, b.Min.Y+y)
		run := 0
		for x := 0; x <= b.Dx(); x++ {
			if x < b.Dx() && int(strip.Pix[off+x]) > threshold {
				run++
				continue
			}
			if run > best.LengthPx {
				best = ScaleBar{X1: x - run, X2: x - 1, Y: y, LengthPx: run}
			}
			run = 0
		}
	}

	if best.LengthPx < MinScaleBarLength {
		return ScaleBar{}, fmt.Errorf("%w: longest bright run is %d px", ErrNoScaleBar, best.LengthPx)
	}
	return best, nil
}
