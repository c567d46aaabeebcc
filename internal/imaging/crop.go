package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Crop extracts a rectangular region from an image and optionally rescales it.
//
// The region is (x1,y1) inclusive to (x2,y2) exclusive. A scale other than 1.0
// resizes the result with a Lanczos filter; scale <= 0 is ignored.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*image.Gray, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %g collapses the %dx%d region", scale, x2-x1, y2-y1)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return grayFromNRGBA(cropped), nil
}

// CropDataBar returns the bottom strip that ROIMask excludes, which on SEM
// micrographs holds the instrument data bar with the scale label.
//
// Parameters:
//   - img: The analysis raster.
//   - bottomExclusionPercent: Same value as the ROI; the strip is the bottom
//     ExcludedRows(height, percent) rows.
//   - scale: Upscale factor applied to the strip (OCR works better on larger
//     glyphs). 1.0 keeps the original size.
//
// Returns:
//   - *image.Gray: The strip, origin at (0,0).
//   - int: The row in img where the strip starts.
//   - error: When the percentage leaves no rows to crop.
func CropDataBar(img *image.Gray, bottomExclusionPercent, scale float64) (*image.Gray, int, error) {
	b := img.Bounds()
	rows := ExcludedRows(b.Dy(), bottomExclusionPercent)
	if rows == 0 {
		return nil, 0, fmt.Errorf("bottom exclusion of %g%% leaves no data bar rows in a %d px tall image",
			bottomExclusionPercent, b.Dy())
	}

	top := b.Dy() - rows
	strip, err := Crop(img, b.Min.X, b.Min.Y+top, b.Max.X, b.Max.Y, scale)
	if err != nil {
		return nil, 0, err
	}
	return strip, top, nil
}
