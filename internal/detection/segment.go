package detection

import (
	"image"

	"github.com/ironsheep/particle-size-mcp/internal/imaging"
)

// Contour is a closed outer boundary in pixel coordinates. The last point
// connects back to the first.
type Contour []imaging.Point

// binaryImage is a foreground mask with bounds starting at (0,0).
type binaryImage struct {
	width, height int
	pix           []bool
}

func newBinaryImage(width, height int) *binaryImage {
	return &binaryImage{width: width, height: height, pix: make([]bool, width*height)}
}

func (b *binaryImage) at(x, y int) bool {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return false
	}
	return b.pix[y*b.width+x]
}

// 8-neighbourhood offsets, clockwise on screen starting east.
var (
	dirX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	dirY = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
)

// binarize marks foreground pixels for a threshold and polarity.
//
// A pixel is foreground when its intensity is strictly below the threshold
// (DarkOnLight) or strictly above it (LightOnDark), and it is included by
// mask. A nil mask includes every pixel.
func binarize(img *image.Gray, threshold int, polarity Polarity, mask *imaging.Mask) *binaryImage {
	b := img.Bounds()
	bin := newBinaryImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < b.Dx(); x++ {
			v := int(img.Pix[off+x])
			fg := v < threshold
			if polarity == LightOnDark {
				fg = v > threshold
			}
			if fg && (mask == nil || mask.Included(x, y)) {
				bin.pix[y*bin.width+x] = true
			}
		}
	}
	return bin
}

// BinaryPreview renders the binarization detection would use as a
// black-and-white image: foreground 255, background 0.
func BinaryPreview(img *image.Gray, threshold int, polarity Polarity, mask *imaging.Mask) *image.Gray {
	bin := binarize(img, threshold, polarity, mask)
	out := image.NewGray(image.Rect(0, 0, bin.width, bin.height))
	for i, fg := range bin.pix {
		if fg {
			out.Pix[i] = 255
		}
	}
	return out
}

// Segment extracts the outer boundaries of the particles in an image.
//
// Parameters:
//   - img: The preprocessed raster.
//   - threshold: Cut value from ResolveThreshold.
//   - polarity: Whether particles are darker or lighter than the background.
//   - mask: ROI mask; excluded pixels are never foreground. Nil includes all.
//   - minArea: Components with fewer pixels are removed before tracing.
//
// Returns one Contour per remaining particle, in raster order of each
// particle's top-left-most pixel.
//
// # Algorithm
//
//  1. Binarize: intensity < threshold (dark) or > threshold (light), AND mask
//  2. Noise removal: drop 4-connected components with fewer than minArea pixels
//  3. Labelling: group the remaining foreground into 8-connected components
//  4. Nesting: skip components that lie inside a hole of another component,
//     so only outermost boundaries are reported
//  5. Tracing: follow each outer boundary clockwise from its first pixel
//     with a Moore neighbourhood sweep
//  6. Compression: keep only the end points of straight runs
//
// Inner (hole) boundaries are not extracted.
func Segment(img *image.Gray, threshold int, polarity Polarity, mask *imaging.Mask, minArea float64) []Contour {
	bin := binarize(img, threshold, polarity, mask)
	removeSmallObjects(bin, minArea)

	labels, starts := labelComponents(bin)
	outside := outerBackground(bin)

	contours := make([]Contour, 0, len(starts))
	for i, s := range starts {
		// The pixel left of a component's first pixel is background. When it
		// is not connected to the image border, the component sits in a hole.
		if s.X > 0 && !outside[s.Y*bin.width+s.X-1] {
			continue
		}
		trace := traceBoundary(labels, bin.width, bin.height, int32(i+1), s)
		contours = append(contours, compressContour(trace))
	}
	return contours
}

// removeSmallObjects clears 4-connected foreground components with fewer
// than minArea pixels.
func removeSmallObjects(bin *binaryImage, minArea float64) {
	visited := make([]bool, len(bin.pix))
	var component []int
	stack := make([]int, 0, 64)

	for start, fg := range bin.pix {
		if !fg || visited[start] {
			continue
		}

		component = component[:0]
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			component = append(component, i)

			x, y := i%bin.width, i/bin.width
			for d := 0; d < 8; d += 2 {
				nx, ny := x+dirX[d], y+dirY[d]
				if !bin.at(nx, ny) {
					continue
				}
				j := ny*bin.width + nx
				if !visited[j] {
					visited[j] = true
					stack = append(stack, j)
				}
			}
		}

		if float64(len(component)) < minArea {
			for _, i := range component {
				bin.pix[i] = false
			}
		}
	}
}

// labelComponents assigns 8-connected component labels starting at 1 in
// raster order and returns each component's first (top-left-most) pixel.
//
// Uses an explicit stack rather than recursion so large particles cannot
// overflow the goroutine stack.
func labelComponents(bin *binaryImage) ([]int32, []imaging.Point) {
	labels := make([]int32, len(bin.pix))
	var starts []imaging.Point
	stack := make([]int, 0, 64)

	for start, fg := range bin.pix {
		if !fg || labels[start] != 0 {
			continue
		}

		id := int32(len(starts) + 1)
		starts = append(starts, imaging.Point{X: start % bin.width, Y: start / bin.width})

		stack = append(stack[:0], start)
		labels[start] = id
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			x, y := i%bin.width, i/bin.width
			for d := 0; d < 8; d++ {
				nx, ny := x+dirX[d], y+dirY[d]
				if !bin.at(nx, ny) {
					continue
				}
				j := ny*bin.width + nx
				if labels[j] == 0 {
					labels[j] = id
					stack = append(stack, j)
				}
			}
		}
	}
	return labels, starts
}

// outerBackground marks the background pixels 4-connected to the image
// border. Background enclosed by an 8-connected component is left false.
func outerBackground(bin *binaryImage) []bool {
	w, h := bin.width, bin.height
	outside := make([]bool, len(bin.pix))
	if w == 0 || h == 0 {
		return outside
	}
	stack := make([]int, 0, 2*(w+h))

	push := func(x, y int) {
		i := y*w + x
		if !bin.pix[i] && !outside[i] {
			outside[i] = true
			stack = append(stack, i)
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for d := 0; d < 8; d += 2 {
			nx, ny := x+dirX[d], y+dirY[d]
			if nx >= 0 && ny >= 0 && nx < w && ny < h {
				push(nx, ny)
			}
		}
	}
	return outside
}

// traceBoundary walks the outer boundary of component id clockwise from its
// first pixel and returns every boundary pixel visited, in order.
//
// At each pixel the neighbours are swept clockwise starting from the
// background pixel examined just before the current pixel was found. The
// walk stops when it is back at the start pixel and about to repeat the
// first move. An isolated pixel yields a single point.
func traceBoundary(labels []int32, width, height int, id int32, start imaging.Point) []imaging.Point {
	inside := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < width && y < height && labels[y*width+x] == id
	}

	// The start pixel's west neighbour is background.
	first, ok := sweep(inside, start, 4)
	if !ok {
		return []imaging.Point{start}
	}

	// A boundary pixel is visited at most four times.
	limit := 4*width*height + 1

	trace := []imaging.Point{start}
	p := imaging.Point{X: start.X + dirX[first], Y: start.Y + dirY[first]}
	d := first
	for {
		next, _ := sweep(inside, p, backtrack(d))
		if (p == start && next == first) || len(trace) > limit {
			return trace
		}
		trace = append(trace, p)
		p = imaging.Point{X: p.X + dirX[next], Y: p.Y + dirY[next]}
		d = next
	}
}

// sweep returns the first foreground neighbour direction clockwise from from.
func sweep(inside func(x, y int) bool, p imaging.Point, from int) (int, bool) {
	for k := 0; k < 8; k++ {
		d := (from + k) % 8
		if inside(p.X+dirX[d], p.Y+dirY[d]) {
			return d, true
		}
	}
	return 0, false
}

// backtrack returns the sweep start after a move in direction d: the
// neighbour examined just before the move, seen from the new pixel.
func backtrack(d int) int {
	if d%2 == 0 {
		return (d + 6) % 8
	}
	return (d + 5) % 8
}

// compressContour drops points in the middle of horizontal, vertical and
// diagonal runs. The start point is always kept.
func compressContour(trace []imaging.Point) Contour {
	n := len(trace)
	if n <= 2 {
		return append(Contour(nil), trace...)
	}

	step := func(a, b imaging.Point) imaging.Point {
		return imaging.Point{X: b.X - a.X, Y: b.Y - a.Y}
	}

	out := Contour{trace[0]}
	for i := 1; i < n; i++ {
		in := step(trace[i-1], trace[i])
		outStep := step(trace[i], trace[(i+1)%n])
		if in != outStep {
			out = append(out, trace[i])
		}
	}
	return out
}
