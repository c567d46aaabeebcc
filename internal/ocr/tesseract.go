package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// DataBarChars is the character whitelist used when reading SEM data bars.
// It covers scale labels ("10 µm", "500nm", "1.5 mm") and the usual
// instrument fields (magnification, voltage, working distance).
const DataBarChars = "0123456789.,:-=xX kKVmMnNuUµμWDHFSEBIL"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized word.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this word in the recognized image.
	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text with original spacing and newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with their bounding boxes.
	// May be empty if bounding box extraction fails.
	Regions []TextRegion `json:"regions"`
}

// TextRecognizer turns an in-memory image into text.
type TextRecognizer interface {
	Recognize(img image.Image) (*OCRResult, error)
}

// Tesseract recognizes text with the Tesseract engine through gosseract.
//
// A new gosseract client is created per call, so a Tesseract value can be
// shared between goroutines.
type Tesseract struct {
	// Language is the Tesseract language code, "eng" when empty.
	Language string

	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string

	// Whitelist restricts the recognized characters. Empty allows all.
	Whitelist string
}

// NewTesseract returns a recognizer tuned for SEM data bars.
func NewTesseract(language, tessdataPrefix string) *Tesseract {
	return &Tesseract{
		Language:       language,
		TessdataPrefix: tessdataPrefix,
		Whitelist:      DataBarChars,
	}
}

// Recognize performs OCR on an image held in memory.
//
// Parameters:
//   - img: The image to read. It is PNG-encoded and handed to Tesseract
//     without touching the filesystem.
//
// Returns:
//   - *OCRResult: FullText and word-level Regions with confidence 0-1.
//   - error: Non-nil if the engine cannot be configured or OCR fails.
//
// # Page Segmentation
//
// Data bars mix short fields separated by wide gaps, so sparse-text mode
// (PSM 11) is used instead of Tesseract's default block layout.
//
// If word-level bounding box extraction fails the full text is still
// returned with an empty Regions slice.
func (t *Tesseract) Recognize(img image.Image) (*OCRResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	lang := t.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if t.Whitelist != "" {
		if err := client.SetWhitelist(t.Whitelist); err != nil {
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       word,
			Confidence: box.Confidence / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return &OCRResult{FullText: text, Regions: regions}, nil
}

// OCRInfo describes the OCR backend.
type OCRInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
}

// Info reports the Tesseract version linked into the binary.
func Info() OCRInfo {
	client := gosseract.NewClient()
	defer client.Close()

	version := client.Version()
	return OCRInfo{
		Available: version != "",
		Version:   version,
		Backend:   "gosseract",
	}
}
