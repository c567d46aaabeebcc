// Package imaging provides the raster stages of the particle analysis pipeline.
//
// This package loads micrographs, reduces them to an 8-bit grayscale raster,
// converts pixel measurements into a physical scale, applies the denoise and
// levels preprocessing, builds the region-of-interest mask and renders the
// detection overlay. All operations use a coordinate system where (0,0) is at
// the top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Rasters returned by this package always have bounds starting at (0,0).
//
// # Scale
//
// ScaleFactor is expressed in pixels per micrometer. A length of n pixels is
// n/scale micrometers and an area of a px² is a/scale² µm².
//
// # Immutability
//
// Every transform returns a new *image.Gray. Inputs are never modified, so a
// raster held by ImageCache can be shared between analyses.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and can be called concurrently.
//
// # Error Handling
//
// Parameter problems are reported with sentinel errors that callers test with
// errors.Is:
//   - ErrInvalidCalibrationInput: non-positive pixel or physical length
//   - ErrInvalidPreprocessingParams: returned by PreprocessingParams.Validate
//
// Preprocess itself assumes valid parameters and never fails.
package imaging
