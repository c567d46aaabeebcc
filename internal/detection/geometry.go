package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/particle-size-mcp/internal/imaging"
)

// Centroid is an area-weighted polygon centroid in pixel coordinates.
type Centroid struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Label returns the integer pixel used to anchor the ID label. Coordinates
// are truncated toward zero.
func (c Centroid) Label() imaging.Point {
	return imaging.Point{X: int(c.X), Y: int(c.Y)}
}

// RotatedRect is a minimum-area bounding rectangle.
type RotatedRect struct {
	Center Centroid `json:"center"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
	// AngleDegrees is the direction of the Width side, in [0, 180).
	AngleDegrees float64 `json:"angle_degrees"`
}

// Area returns the enclosed polygon area in px² (shoelace formula).
func (c Contour) Area() float64 {
	return math.Abs(c.signedArea())
}

func (c Contour) signedArea() float64 {
	n := len(c)
	if n < 3 {
		return 0
	}
	var s float64
	for i := 0; i < n; i++ {
		p, q := c[i], c[(i+1)%n]
		s += float64(p.X*q.Y - q.X*p.Y)
	}
	return s / 2
}

// Perimeter returns the length of the closed polygon, including the segment
// from the last point back to the first.
func (c Contour) Perimeter() float64 {
	n := len(c)
	if n < 2 {
		return 0
	}
	var l float64
	for i := 0; i < n; i++ {
		p, q := c[i], c[(i+1)%n]
		l += math.Hypot(float64(q.X-p.X), float64(q.Y-p.Y))
	}
	return l
}

// Centroid returns the polygon centroid from the first and zeroth area
// moments, m10/m00 and m01/m00. It reports false when m00 is zero.
func (c Contour) Centroid() (Centroid, bool) {
	n := len(c)
	if n < 3 {
		return Centroid{}, false
	}
	var m00, m10, m01 float64
	for i := 0; i < n; i++ {
		p, q := c[i], c[(i+1)%n]
		cross := float64(p.X*q.Y - q.X*p.Y)
		m00 += cross
		m10 += float64(p.X+q.X) * cross
		m01 += float64(p.Y+q.Y) * cross
	}
	if m00 == 0 {
		return Centroid{}, false
	}
	// m00 carries a factor of 2 and m10/m01 a factor of 6.
	return Centroid{X: m10 / (3 * m00), Y: m01 / (3 * m00)}, true
}

// MinAreaRect returns the smallest-area rectangle enclosing the contour.
//
// # Algorithm
//
//  1. Convex hull of the points (Andrew's monotone chain)
//  2. Rotating calipers: one side of the optimal rectangle is collinear
//     with a hull edge, so every edge direction is tried and the rectangle
//     with the smallest area is kept
//
// A single point gives a 0x0 rectangle; collinear points give a rectangle of
// zero height along the line.
func (c Contour) MinAreaRect() RotatedRect {
	hull := convexHull(c)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: Centroid{X: float64(hull[0].X), Y: float64(hull[0].Y)}}
	}

	best := RotatedRect{Width: math.Inf(1), Height: math.Inf(1)}
	bestArea := math.Inf(1)
	n := len(hull)
	for i := 0; i < n; i++ {
		p, q := hull[i], hull[(i+1)%n]
		ex, ey := float64(q.X-p.X), float64(q.Y-p.Y)
		l := math.Hypot(ex, ey)
		if l == 0 {
			continue
		}
		ux, uy := ex/l, ey/l // edge direction
		vx, vy := -uy, ux    // normal

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, h := range hull {
			dx, dy := float64(h.X-p.X), float64(h.Y-p.Y)
			u := dx*ux + dy*uy
			v := dx*vx + dy*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		w, h := maxU-minU, maxV-minV
		if area := w * h; area < bestArea {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			angle := math.Atan2(uy, ux) * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}
			if angle >= 180 {
				angle -= 180
			}
			best = RotatedRect{
				Center: Centroid{
					X: float64(p.X) + cu*ux + cv*vx,
					Y: float64(p.Y) + cu*uy + cv*vy,
				},
				Width:        w,
				Height:       h,
				AngleDegrees: angle,
			}
		}
	}
	return best
}

// convexHull returns the hull vertices in counter-clockwise order (in
// standard axes) without repeating the first point. Collinear points on hull
// edges are dropped.
func convexHull(pts []imaging.Point) []imaging.Point {
	if len(pts) == 0 {
		return nil
	}

	sorted := append([]imaging.Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	uniq := sorted[:1]
	for _, p := range sorted[1:] {
		if p != uniq[len(uniq)-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return uniq
	}

	cross := func(o, a, b imaging.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]imaging.Point, 0, 2*len(uniq))
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
