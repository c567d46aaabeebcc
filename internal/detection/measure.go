package detection

import (
	"math"

	"github.com/ironsheep/particle-size-mcp/internal/imaging"
)

// ParticleRecord holds the measurements of one accepted particle.
type ParticleRecord struct {
	// ID is the 1-based position of the particle in detection order.
	ID int `json:"id"`

	// AreaPx is the polygon area in px²; AreaUm2 the same in µm².
	AreaPx  float64 `json:"area_pixels"`
	AreaUm2 float64 `json:"area_um2"`

	// Short and long sides of the minimum-area bounding rectangle.
	ShortAxisPx float64 `json:"short_axis_pixels"`
	LongAxisPx  float64 `json:"long_axis_pixels"`
	ShortAxisUm float64 `json:"short_axis_um"`
	LongAxisUm  float64 `json:"long_axis_um"`

	// MeanDiameterUm is the average of the short and long axes.
	MeanDiameterUm float64 `json:"mean_diameter_um"`

	// EquivalentDiameterUm is the diameter of the disk with the same area.
	EquivalentDiameterUm float64 `json:"equivalent_diameter_um"`

	// Circularity is 4π·area/perimeter², 1.0 for a perfect circle.
	Circularity float64 `json:"circularity"`

	// AspectRatio is long/short axis, 0 when the short axis is 0.
	AspectRatio float64 `json:"aspect_ratio"`

	// Perimeter is the closed boundary length in px.
	Perimeter float64 `json:"perimeter"`

	// Centroid is nil when the contour encloses no area.
	Centroid *Centroid `json:"centroid,omitempty"`
}

// FilterParams are the acceptance bounds applied to traced contours.
type FilterParams struct {
	MinArea        float64
	MaxArea        float64
	MinCircularity float64
}

// MeasureContours filters contours and measures the accepted ones.
//
// Contours are examined in order. A contour is rejected when:
//   - its polygon area is below MinArea or above MaxArea
//   - its perimeter is zero (circularity is undefined)
//   - its circularity is below MinCircularity
//
// Returns the records for accepted contours, IDs numbered from 1 in input
// order, and the accepted contours themselves in the same order. The scale
// factor must be valid; DetectParticles checks it before calling here.
func MeasureContours(contours []Contour, scale imaging.ScaleFactor, f FilterParams) ([]ParticleRecord, []Contour) {
	records := make([]ParticleRecord, 0, len(contours))
	accepted := make([]Contour, 0, len(contours))

	for _, c := range contours {
		area := c.Area()
		if area < f.MinArea || area > f.MaxArea {
			continue
		}

		perimeter := c.Perimeter()
		if perimeter == 0 {
			continue
		}
		circularity := 4 * math.Pi * area / (perimeter * perimeter)
		if circularity < f.MinCircularity {
			continue
		}

		rec := measure(c, area, perimeter, circularity, scale)
		rec.ID = len(records) + 1
		records = append(records, rec)
		accepted = append(accepted, c)
	}
	return records, accepted
}

func measure(c Contour, area, perimeter, circularity float64, scale imaging.ScaleFactor) ParticleRecord {
	rect := c.MinAreaRect()
	short := math.Min(rect.Width, rect.Height)
	long := math.Max(rect.Width, rect.Height)

	areaUm2 := scale.SquarePixelsToMicrometers(area)
	shortUm := scale.PixelsToMicrometers(short)
	longUm := scale.PixelsToMicrometers(long)

	var aspect float64
	if short > 0 {
		aspect = long / short
	}

	rec := ParticleRecord{
		AreaPx:               area,
		AreaUm2:              areaUm2,
		ShortAxisPx:          short,
		LongAxisPx:           long,
		ShortAxisUm:          shortUm,
		LongAxisUm:           longUm,
		MeanDiameterUm:       (shortUm + longUm) / 2,
		EquivalentDiameterUm: 2 * math.Sqrt(areaUm2/math.Pi),
		Circularity:          circularity,
		AspectRatio:          aspect,
		Perimeter:            perimeter,
	}
	if centroid, ok := c.Centroid(); ok {
		rec.Centroid = &centroid
	}
	return rec
}
