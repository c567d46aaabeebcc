package imaging

import (
	"image"
	"math"
)

// Mask is a boolean inclusion mask over an image. True means the pixel takes
// part in thresholding and segmentation.
type Mask struct {
	Width  int
	Height int
	pix    []bool
}

// ROIMask builds the region-of-interest mask that excludes the bottom strip of
// a micrograph, where SEM instruments print their data bar.
//
// The bottom floor(height × bottomExclusionPercent / 100) rows are excluded
// across the full width; every other pixel is included. Percent values are
// clamped to [0, 100].
func ROIMask(height, width int, bottomExclusionPercent float64) *Mask {
	if height < 0 {
		height = 0
	}
	if width < 0 {
		width = 0
	}

	m := &Mask{Width: width, Height: height, pix: make([]bool, width*height)}
	included := m.Height - ExcludedRows(height, bottomExclusionPercent)
	for i := 0; i < included*width; i++ {
		m.pix[i] = true
	}
	return m
}

// ExcludedRows returns the number of bottom rows removed by the ROI.
func ExcludedRows(height int, bottomExclusionPercent float64) int {
	p := bottomExclusionPercent
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	n := int(math.Floor(float64(height) * p / 100))
	if n > height {
		n = height
	}
	return n
}

// Included reports whether (x, y) lies inside the image and the ROI.
func (m *Mask) Included(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.pix[y*m.Width+x]
}

// IncludedRows returns the number of leading rows that are inside the ROI.
func (m *Mask) IncludedRows() int {
	for y := 0; y < m.Height; y++ {
		if m.Width > 0 && !m.pix[y*m.Width] {
			return y
		}
	}
	return m.Height
}

// Count returns the number of included pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.pix {
		if v {
			n++
		}
	}
	return n
}

// MaskedSamples returns the intensities of all pixels included by the mask,
// in row-major order. A nil mask includes every pixel.
func MaskedSamples(img *image.Gray, m *Mask) []uint8 {
	b := img.Bounds()
	samples := make([]uint8, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		row := img.Pix[off : off+b.Dx()]
		for x, v := range row {
			if m == nil || m.Included(x, y) {
				samples = append(samples, v)
			}
		}
	}
	return samples
}
