package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Default overlay colours.
const (
	DefaultBoundaryColor = "#00FF00"
	DefaultLabelColor    = "#FF0000"
)

// OverlayShape is one particle to draw on the overlay.
type OverlayShape struct {
	// ID is drawn as the label text.
	ID int

	// Boundary is the closed outline; the last point connects back to the first.
	Boundary []Point

	// LabelAt is the label anchor, usually the centroid. Nil means no label.
	LabelAt *Point
}

// OverlayOptions controls overlay rendering.
type OverlayOptions struct {
	// BoundaryColor is a hex colour ("#RRGGBB"). Invalid or empty values fall
	// back to DefaultBoundaryColor.
	BoundaryColor string

	// LabelColor is the hex colour of the ID text.
	LabelColor string

	// LineWidth is the boundary thickness in pixels (minimum 1).
	LineWidth int

	// DistinctColors gives every particle its own hue instead of BoundaryColor.
	DistinctColors bool
}

// EncodedImage contains a PNG-encoded image ready for transport.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// RenderOverlay draws particle boundaries and ID labels over a grayscale image.
//
// Parameters:
//   - img: The analysis raster the boundaries were extracted from.
//   - shapes: Accepted particles in ID order.
//   - opts: Colours and line width.
//
// Returns a new RGBA image; img is not modified. Boundaries are drawn first
// and labels last so that text stays readable where particles touch.
func RenderOverlay(img *image.Gray, shapes []OverlayShape, opts OverlayOptions) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	boundary := parseColor(opts.BoundaryColor, DefaultBoundaryColor)
	label := parseColor(opts.LabelColor, DefaultLabelColor)
	width := opts.LineWidth
	if width < 1 {
		width = 1
	}

	for i, s := range shapes {
		c := boundary
		if opts.DistinctColors {
			c = paletteColor(i)
		}
		drawPolygon(result, s.Boundary, width, c)
	}

	bg := color.RGBA{0, 0, 0, 180}
	for _, s := range shapes {
		if s.LabelAt == nil {
			continue
		}
		drawLabel(result, *s.LabelAt, strconv.Itoa(s.ID), label, bg)
	}

	return result
}

// EncodePNG encodes an image as base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// parseColor parses a hex colour, falling back to def.
func parseColor(hex, def string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(def)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// paletteColor returns a saturated colour for the i-th particle. Hues step by
// the golden angle so neighbouring IDs stay distinguishable.
func paletteColor(i int) color.RGBA {
	hue := math.Mod(float64(i)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.85, 1.0).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawPolygon draws a closed polyline with Bresenham segments.
func drawPolygon(img *image.RGBA, pts []Point, width int, c color.RGBA) {
	n := len(pts)
	if n == 0 {
		return
	}
	if n == 1 {
		stamp(img, pts[0].X, pts[0].Y, width, c)
		return
	}
	for i := 0; i < n; i++ {
		drawSegment(img, pts[i], pts[(i+1)%n], width, c)
	}
}

func drawSegment(img *image.RGBA, p0, p1 Point, width int, c color.RGBA) {
	x0, y0 := p0.X, p0.Y
	dx := absInt(p1.X - x0)
	dy := -absInt(p1.Y - y0)
	sx, sy := 1, 1
	if x0 > p1.X {
		sx = -1
	}
	if y0 > p1.Y {
		sy = -1
	}
	e := dx + dy

	for {
		stamp(img, x0, y0, width, c)
		if x0 == p1.X && y0 == p1.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// stamp paints a width x width square centred on (x, y), clipped to the image.
func stamp(img *image.RGBA, x, y, width int, c color.RGBA) {
	half := (width - 1) / 2
	r := image.Rect(x-half, y-half, x-half+width, y-half+width).Intersect(img.Bounds())
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			img.SetRGBA(px, py, c)
		}
	}
}

// drawLabel draws text centred on at, over a translucent background box.
func drawLabel(img *image.RGBA, at Point, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
	}

	w := d.MeasureString(text).Ceil()
	h := face.Height
	x := at.X - w/2
	top := at.Y - h/2

	box := image.Rect(x-1, top-1, x+w+1, top+h+1).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Over)

	d.Dot = fixed.P(x, top+face.Ascent)
	d.DrawString(text)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
