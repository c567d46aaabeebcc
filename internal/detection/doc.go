// Package detection finds particles in a preprocessed micrograph and measures
// them.
//
// The package implements the thresholding, segmentation and measurement
// stages of the analysis pipeline. It is designed for SEM images where
// particles are darker or lighter than a roughly uniform background.
//
// # Pipeline
//
// DetectParticles runs the stages in order:
//
//  1. Threshold: a global cut value from the ROI intensity histogram
//     (Otsu, Li, Yen, Triangle, Isodata) or a manual value
//  2. Segmentation: binarize, drop small 4-connected components, trace the
//     outer boundary of every 8-connected component
//  3. Filtering: reject contours outside the area bounds, with zero
//     perimeter, or below the minimum circularity
//  4. Measurement: area, perimeter, minimum-area rectangle axes, equivalent
//     diameter, circularity, aspect ratio and centroid
//
// Each stage can also be called on its own: ComputeThreshold,
// CompareThresholdMethods, Segment and MeasureContours.
//
// # Threshold Fallback
//
// Threshold computation never fails. When a method cannot produce a value
// the result is FallbackThreshold (128). Callers and tests can rely on this.
//
// # Coordinate System
//
// Contours use the image convention: origin at the top-left pixel centre,
// X rightward, Y downward. Areas and perimeters are computed on the polygon
// through boundary pixel centres, so a filled n×n square measures
// (n-1)² px².
//
// # Units
//
// Pixel quantities carry a Px suffix. Physical quantities (Um, Um2) are
// converted with an imaging.ScaleFactor in pixels per micrometer.
package detection
