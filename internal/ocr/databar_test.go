package ocr

import (
	"errors"
	"image"
	"math"
	"testing"
)

// fakeRecognizer returns fixed text and records the image it was given.
type fakeRecognizer struct {
	text string
	err  error
	seen image.Rectangle
}

func (f *fakeRecognizer) Recognize(img image.Image) (*OCRResult, error) {
	f.seen = img.Bounds()
	if f.err != nil {
		return nil, f.err
	}
	return &OCRResult{FullText: f.text}, nil
}

// createMicrograph builds a 100x100 image whose bottom 10 rows are a black
// data bar holding a white scale bar on row 95, columns barX1..barX2.
func createMicrograph(t *testing.T, barX1, barX2 int) *image.Gray {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 120
	}
	for y := 90; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Pix[img.PixOffset(x, y)] = 0
		}
	}
	for x := barX1; x <= barX2; x++ {
		img.Pix[img.PixOffset(x, 95)] = 255
	}
	return img
}

func TestReadDataBar(t *testing.T) {
	img := createMicrograph(t, 20, 69)
	rec := &fakeRecognizer{text: "15.0 kV  WD 8.1 mm\n10 µm\n"}

	reading, err := ReadDataBar(img, 10, rec)
	if err != nil {
		t.Fatalf("ReadDataBar failed: %v", err)
	}

	if reading.Top != 90 {
		t.Errorf("top: got %d, want 90", reading.Top)
	}
	if rec.seen.Dx() != 200 || rec.seen.Dy() != 20 {
		t.Errorf("recognizer saw %v, want a 200x20 upscaled strip", rec.seen)
	}
	if reading.Label == nil || reading.Label.Micrometers != 10 {
		t.Fatalf("label: got %+v, want 10 µm", reading.Label)
	}
	if reading.Bar == nil {
		t.Fatal("no scale bar found")
	}
	want := ScaleBar{X1: 20, X2: 69, Y: 95, LengthPx: 50}
	if *reading.Bar != want {
		t.Errorf("bar: got %+v, want %+v", *reading.Bar, want)
	}
	if math.Abs(float64(reading.Scale)-5) > 1e-12 {
		t.Errorf("scale: got %v, want 5 px/µm", reading.Scale)
	}
}

func TestReadDataBar_NoRecognizer(t *testing.T) {
	reading, err := ReadDataBar(createMicrograph(t, 10, 39), 10, nil)
	if err != nil {
		t.Fatalf("ReadDataBar failed: %v", err)
	}
	if reading.Text != "" || reading.Label != nil {
		t.Errorf("expected no text without a recognizer, got %+v", reading)
	}
	if reading.Bar == nil || reading.Bar.LengthPx != 30 {
		t.Errorf("bar: got %+v, want 30 px", reading.Bar)
	}
	if reading.Scale != 0 {
		t.Errorf("scale without label: got %v, want 0", reading.Scale)
	}
}

func TestReadDataBar_UnreadableLabel(t *testing.T) {
	rec := &fakeRecognizer{text: "Mag x5000"}
	reading, err := ReadDataBar(createMicrograph(t, 20, 69), 10, rec)
	if err != nil {
		t.Fatalf("ReadDataBar failed: %v", err)
	}
	if reading.Text != "Mag x5000" {
		t.Errorf("text: got %q", reading.Text)
	}
	if reading.Label != nil || reading.Scale != 0 {
		t.Errorf("expected no label and no scale, got %+v", reading)
	}
	if reading.Bar == nil {
		t.Error("bar should still be reported")
	}
}

func TestReadDataBar_Errors(t *testing.T) {
	img := createMicrograph(t, 20, 69)

	if _, err := ReadDataBar(img, 0, nil); err == nil {
		t.Error("expected an error when no rows are excluded")
	}

	ocrErr := errors.New("engine crashed")
	if _, err := ReadDataBar(img, 10, &fakeRecognizer{err: ocrErr}); !errors.Is(err, ocrErr) {
		t.Errorf("got %v, want the recognizer error", err)
	}
}

func TestFindScaleBar(t *testing.T) {
	tests := []struct {
		name    string
		runs    [][3]int // y, x1, x2
		want    ScaleBar
		wantErr bool
	}{
		{
			name: "single bar",
			runs: [][3]int{{3, 5, 44}},
			want: ScaleBar{X1: 5, X2: 44, Y: 3, LengthPx: 40},
		},
		{
			name: "longest wins",
			runs: [][3]int{{1, 0, 14}, {4, 30, 59}},
			want: ScaleBar{X1: 30, X2: 59, Y: 4, LengthPx: 30},
		},
		{
			name: "tie keeps topmost",
			runs: [][3]int{{2, 40, 59}, {5, 0, 19}},
			want: ScaleBar{X1: 40, X2: 59, Y: 2, LengthPx: 20},
		},
		{
			name: "run to right edge",
			runs: [][3]int{{0, 50, 79}},
			want: ScaleBar{X1: 50, X2: 79, Y: 0, LengthPx: 30},
		},
		{
			name:    "too short",
			runs:    [][3]int{{3, 10, 18}},
			wantErr: true,
		},
		{
			name:    "blank strip",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strip := image.NewGray(image.Rect(0, 0, 80, 8))
			for _, r := range tt.runs {
				for x := r[1]; x <= r[2]; x++ {
					strip.Pix[strip.PixOffset(x, r[0])] = 255
				}
			}

			got, err := FindScaleBar(strip)
			if tt.wantErr {
				if !errors.Is(err, ErrNoScaleBar) {
					t.Errorf("got %v, want ErrNoScaleBar", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindScaleBar failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
