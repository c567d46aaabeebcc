package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder (most SEM exports)
)

// ImageCache provides thread-safe caching of decoded micrographs to avoid
// redundant disk reads and repeated grayscale reduction.
//
// The cache stores the single-channel analysis raster (*image.Gray) keyed by
// file path. The first Load for a path decodes the file and reduces it to
// grayscale; later calls return the same raster.
//
// Cached rasters are treated as immutable. Every pipeline stage returns a new
// image, so sharing a cached raster between sessions is safe.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	gray, err := cache.Load("/data/sample-01.tif")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/data/sample-01.tif") // Optional: free memory
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*image.Gray
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*image.Gray),
	}
}

// Load retrieves a grayscale raster from the cache or decodes it from disk.
//
// Parameters:
//   - path: Absolute or relative file path. Supported formats are TIFF, PNG,
//     BMP, JPEG, and GIF.
//
// Returns:
//   - *image.Gray: The 8-bit analysis raster with bounds starting at (0,0).
//   - error: Non-nil if the file cannot be opened or decoded.
//
// Different paths to the same file (e.g., relative vs absolute) produce
// separate cache entries.
func (c *ImageCache) Load(path string) (*image.Gray, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	gray := ToGray(img)

	c.mu.Lock()
	c.images[path] = gray
	c.mu.Unlock()

	return gray, nil
}

// Clear removes all rasters from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*image.Gray)
	c.mu.Unlock()
}

// Evict removes a specific raster from the cache by its path.
// If the path is not cached, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ToGray reduces any image to an 8-bit single-channel raster whose bounds
// start at (0,0).
//
// Color images are converted with ITU-R BT.601 luminance weights through
// disintegration/imaging. A *image.Gray that already starts at the origin is
// copied so the caller's image is never aliased.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < b.Dy(); y++ {
			src := g.Pix[(y+b.Min.Y-g.Rect.Min.Y)*g.Stride+(b.Min.X-g.Rect.Min.X):]
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src[:b.Dx()])
		}
		return out
	}

	// Grayscale keeps the luminance in R=G=B of an NRGBA image.
	nrgba := imaging.Grayscale(img)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = nrgba.Pix[y*nrgba.Stride+x*4]
		}
	}
	return out
}

// ImageInfo contains metadata about a loaded micrograph.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "tiff", "png", "bmp",
	// "jpeg", "gif", or "unknown".
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Stats summarizes the grayscale intensities.
	Stats IntensityStats `json:"stats"`
}

// LoadImageInfo loads a micrograph through the cache and returns its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		format = "tiff"
	case ".png":
		format = "png"
	case ".bmp":
		format = "bmp"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		FileSizeBytes: stat.Size(),
		Stats:         ImageStats(img),
	}, nil
}
