package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawText draws text on an image using basicfont
func drawText(img draw.Image, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// createImageWithText renders white text on black, like an SEM data bar, and
// scales it up by an integer factor.
func createImageWithText(t *testing.T, text string, scale int) *image.Gray {
	t.Helper()

	width := len(text)*7 + 40
	height := 40

	small := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(small, small.Bounds(), image.Black, image.Point{}, draw.Src)
	drawText(small, 20, 25, text, color.White)
	if scale <= 1 {
		return small
	}

	img := image.NewGray(image.Rect(0, 0, width*scale, height*scale))
	for y := 0; y < height*scale; y++ {
		for x := 0; x < width*scale; x++ {
			img.SetGray(x, y, small.GrayAt(x/scale, y/scale))
		}
	}
	return img
}

// recognizeOrSkip runs Tesseract and skips the test when the engine or its
// language data is not installed.
func recognizeOrSkip(t *testing.T, tess *Tesseract, img image.Image) *OCRResult {
	t.Helper()

	result, err := tess.Recognize(img)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "tesseract") || strings.Contains(msg, "library") ||
			strings.Contains(msg, "language") || strings.Contains(msg, "tessdata") {
			t.Skipf("Tesseract not available: %v", err)
		}
		t.Fatalf("Recognize failed: %v", err)
	}
	return result
}

func TestTesseract_Recognize(t *testing.T) {
	result := recognizeOrSkip(t, NewTesseract("eng", ""), createImageWithText(t, "10 um", 4))
	if result == nil {
		t.Fatal("Recognize returned nil result")
	}
	t.Logf("Extracted text: %q (%d regions)", result.FullText, len(result.Regions))

	for _, r := range result.Regions {
		if r.Text == "" {
			t.Error("empty words should be filtered out")
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("confidence %v outside [0, 1]", r.Confidence)
		}
		if r.Bounds.X2 < r.Bounds.X1 || r.Bounds.Y2 < r.Bounds.Y1 {
			t.Errorf("inverted bounds %+v", r.Bounds)
		}
	}
}

func TestTesseract_ScaleLabel(t *testing.T) {
	result := recognizeOrSkip(t, NewTesseract("eng", ""), createImageWithText(t, "500 nm", 4))

	label, err := ParseScaleLabel(result.FullText)
	if err != nil {
		// Rendering with a bitmap font is not always legible to Tesseract.
		t.Logf("label not recognized in %q: %v", result.FullText, err)
		return
	}
	if label.Value != 500 || label.Unit != "nm" {
		t.Errorf("got %+v, want 500 nm", label)
	}
}

func TestTesseract_EmptyImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 120, 40))
	result := recognizeOrSkip(t, &Tesseract{}, img)
	if strings.TrimSpace(result.FullText) != "" {
		t.Logf("unexpected text on a blank image: %q", result.FullText)
	}
}

func TestTesseract_InvalidLanguage(t *testing.T) {
	tess := NewTesseract("invalid_language_code_xyz", "")
	if _, err := tess.Recognize(createImageWithText(t, "1 mm", 2)); err == nil {
		// Some Tesseract installations might be lenient with language codes
		t.Log("Recognize did not fail for invalid language - may be Tesseract config")
	}
}

func TestNewTesseract_Defaults(t *testing.T) {
	tess := NewTesseract("deu", "/opt/tessdata")
	if tess.Language != "deu" || tess.TessdataPrefix != "/opt/tessdata" {
		t.Errorf("got %+v", tess)
	}
	if tess.Whitelist != DataBarChars {
		t.Errorf("whitelist: got %q, want DataBarChars", tess.Whitelist)
	}
	for _, c := range "0123456789.µμnmu" {
		if !strings.ContainsRune(DataBarChars, c) {
			t.Errorf("DataBarChars is missing %q", c)
		}
	}
}
