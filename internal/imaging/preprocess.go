package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/montanaflynn/stats"
)

// ErrInvalidPreprocessingParams is returned by PreprocessingParams.Validate.
var ErrInvalidPreprocessingParams = errors.New("invalid preprocessing parameters")

// PreprocessingParams controls the denoise and levels stages applied before
// thresholding.
type PreprocessingParams struct {
	// GaussianSigma is the blur standard deviation in pixels. <= 0 disables the blur.
	GaussianSigma float64 `json:"gaussian_sigma" yaml:"gaussian_sigma"`

	// MedianKernel is the median window size. Even sizes are rounded up to the
	// next odd size; <= 1 disables the filter.
	MedianKernel int `json:"median_kernel" yaml:"median_kernel"`

	// BlackPoint and WhitePoint (0-255) map to output 0 and 255.
	BlackPoint int `json:"black_point" yaml:"black_point"`
	WhitePoint int `json:"white_point" yaml:"white_point"`

	// Contrast is the power-law factor; output = normalized^(1/Contrast).
	Contrast float64 `json:"contrast" yaml:"contrast"`
}

// DefaultPreprocessingParams returns the neutral-levels defaults: a light
// blur and 3x3 median with the full 0-255 range and unit contrast.
func DefaultPreprocessingParams() PreprocessingParams {
	return PreprocessingParams{
		GaussianSigma: 1.0,
		MedianKernel:  3,
		BlackPoint:    0,
		WhitePoint:    255,
		Contrast:      1.0,
	}
}

// Validate checks the parameter ranges. Preprocess itself assumes valid input.
func (p PreprocessingParams) Validate() error {
	switch {
	case math.IsNaN(p.GaussianSigma) || p.GaussianSigma < 0:
		return fmt.Errorf("%w: gaussian sigma must be >= 0, got %g", ErrInvalidPreprocessingParams, p.GaussianSigma)
	case p.MedianKernel < 1:
		return fmt.Errorf("%w: median kernel must be >= 1, got %d", ErrInvalidPreprocessingParams, p.MedianKernel)
	case p.BlackPoint < 0 || p.BlackPoint > 255 || p.WhitePoint < 0 || p.WhitePoint > 255:
		return fmt.Errorf("%w: black/white points must be within 0-255, got %d/%d",
			ErrInvalidPreprocessingParams, p.BlackPoint, p.WhitePoint)
	case p.BlackPoint >= p.WhitePoint:
		return fmt.Errorf("%w: black point %d must be below white point %d",
			ErrInvalidPreprocessingParams, p.BlackPoint, p.WhitePoint)
	case !(p.Contrast > 0):
		return fmt.Errorf("%w: contrast must be > 0, got %g", ErrInvalidPreprocessingParams, p.Contrast)
	}
	return nil
}

// OddKernel returns the median kernel size actually used: even sizes are
// incremented by one.
func (p PreprocessingParams) OddKernel() int {
	if p.MedianKernel%2 == 0 {
		return p.MedianKernel + 1
	}
	return p.MedianKernel
}

// Preprocess applies the denoise and levels pipeline to a grayscale raster.
//
// Stages run in a fixed order, each only when its parameter is active:
//
//  1. Gaussian blur with sigma GaussianSigma (skipped when sigma <= 0)
//  2. Median filter with window OddKernel() (skipped when the kernel is <= 1)
//  3. Levels: (x - black) / (white - black), clipped to [0,1], raised to
//     1/Contrast, scaled to 0-255 and truncated
//
// The result is a new *image.Gray with the same dimensions as img.
func Preprocess(img *image.Gray, p PreprocessingParams) *image.Gray {
	result := ToGray(img)

	if p.GaussianSigma > 0 {
		result = grayFromNRGBA(imaging.Blur(result, p.GaussianSigma))
	}

	if p.MedianKernel > 1 {
		radius := float64((p.OddKernel() - 1) / 2)
		result = grayFromRGBA(effect.Median(result, radius))
	}

	lut := levelsTable(p.BlackPoint, p.WhitePoint, p.Contrast)
	adjusted := imaging.AdjustFunc(result, func(c color.NRGBA) color.NRGBA {
		v := lut[c.R]
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
	return grayFromNRGBA(adjusted)
}

// levelsTable precomputes the levels transform for every 8-bit intensity.
func levelsTable(black, white int, contrast float64) [256]uint8 {
	var lut [256]uint8
	gamma := 1.0
	if contrast > 0 {
		gamma = 1.0 / contrast
	}
	span := float64(white - black)

	for v := 0; v < 256; v++ {
		var n float64
		if span > 0 {
			n = (float64(v) - float64(black)) / span
		} else if v >= black {
			n = 1
		}
		n = math.Max(0, math.Min(1, n))
		lut[v] = uint8(math.Pow(n, gamma) * 255)
	}
	return lut
}

// AutoPreprocessingParams derives preprocessing parameters that make the
// image easier to binarize.
//
// The heuristic is deterministic for a given image:
//   - GaussianSigma from the variance of the 3x3 Laplacian response:
//     > 1000 -> 1.5, > 500 -> 1.0, otherwise 0.5
//   - MedianKernel fixed at 3
//   - BlackPoint / WhitePoint at the 1st / 99th percentile of the
//     cumulative intensity histogram
//   - Contrast from the intensity standard deviation:
//     < 30 -> 1.5 (flat image), > 80 -> 0.8 (harsh image), otherwise 1.0
//
// When the percentile points collapse (near-uniform images) the full 0-255
// range is kept so the result always validates.
func AutoPreprocessingParams(img *image.Gray) PreprocessingParams {
	p := PreprocessingParams{
		GaussianSigma: 0.5,
		MedianKernel:  3,
		BlackPoint:    0,
		WhitePoint:    255,
		Contrast:      1.0,
	}

	lapVar, err := stats.PopulationVariance(laplacian(img))
	if err == nil {
		switch {
		case lapVar > 1000:
			p.GaussianSigma = 1.5
		case lapVar > 500:
			p.GaussianSigma = 1.0
		}
	}

	hist := intensityHistogram(img)
	var total int
	for _, c := range hist {
		total += c
	}
	if total > 0 {
		black, white := -1, -1
		cum := 0
		for v, c := range hist {
			cum += c
			if black < 0 && float64(cum) >= float64(total)*0.01 {
				black = v
			}
			if white < 0 && float64(cum) >= float64(total)*0.99 {
				white = v
			}
		}
		if black >= 0 && white > black {
			p.BlackPoint = black
			p.WhitePoint = white
		}
	}

	std, err := stats.StandardDeviationPopulation(intensities(img))
	if err == nil {
		switch {
		case std < 30:
			p.Contrast = 1.5
		case std > 80:
			p.Contrast = 0.8
		}
	}

	return p
}

// IntensityStats summarizes the grayscale values of an image.
type IntensityStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ImageStats returns min, max, mean and population standard deviation of the
// intensities. An empty image yields the zero value.
func ImageStats(img *image.Gray) IntensityStats {
	data := stats.Float64Data(intensities(img))
	if data.Len() == 0 {
		return IntensityStats{}
	}
	lo, _ := data.Min()
	hi, _ := data.Max()
	mean, _ := data.Mean()
	std, _ := data.StandardDeviationPopulation()
	return IntensityStats{Min: lo, Max: hi, Mean: mean, Std: std}
}

// laplacian returns the 4-neighbour Laplacian response of every pixel, with
// reflect-101 borders.
func laplacian(img *image.Gray) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, 0, w*h)
	at := func(x, y int) float64 {
		return float64(img.GrayAt(b.Min.X+reflect101(x, w), b.Min.Y+reflect101(y, h)).Y)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, at(x-1, y)+at(x+1, y)+at(x, y-1)+at(x, y+1)-4*at(x, y))
		}
	}
	return out
}

// reflect101 mirrors an out-of-range index without repeating the edge pixel.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

func intensities(img *image.Gray) []float64 {
	samples := MaskedSamples(img, nil)
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v)
	}
	return out
}

func intensityHistogram(img *image.Gray) [256]int {
	var hist [256]int
	for _, v := range MaskedSamples(img, nil) {
		hist[v]++
	}
	return hist
}

func grayFromNRGBA(src *image.NRGBA) *image.Gray {
	return grayFromChannel(src.Pix, src.Stride, src.Bounds())
}

func grayFromRGBA(src *image.RGBA) *image.Gray {
	return grayFromChannel(src.Pix, src.Stride, src.Bounds())
}

// grayFromChannel copies the red channel of a 4-byte-per-pixel buffer. The
// inputs here are gray, so R == G == B.
func grayFromChannel(pix []uint8, stride int, b image.Rectangle) *image.Gray {
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = pix[y*stride+x*4]
		}
	}
	return out
}
