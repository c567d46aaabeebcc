// Package ocr reads the instrument data bar at the bottom of SEM micrographs.
//
// The data bar is the strip the particle analysis excludes from its ROI. It
// usually carries a scale bar (a solid horizontal line) and a label giving the
// bar's physical length, such as "10 µm" or "500 nm". ReadDataBar finds both
// and suggests a scale factor in pixels per micrometer. The suggestion is
// advisory; the session scale is only changed by an explicit calibration.
//
// # Text Recognition
//
// Text is read through the TextRecognizer interface. Tesseract implements it
// with the Tesseract engine via gosseract/v2. Images are passed in memory as
// PNG bytes, so no temporary files are written.
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Scale Labels
//
// ParseScaleLabel accepts nm, µm and mm in their common OCR misreadings
// ("um", "jum", "urn") and snaps tokens within edit distance 1 of a known
// spelling. Working-distance fields ("WD 10.1 mm") are ignored.
package ocr
