package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

type fakeRecognizer struct {
	dets []Detection
	err  error
	seen image.Rectangle
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image, _ Options) ([]Detection, error) {
	f.seen = img.Bounds()
	return f.dets, f.err
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"word", LevelWord, false},
		{"", LevelWord, false},
		{"LINE", LevelLine, false},
		{"par", LevelParagraph, false},
		{"block", LevelBlock, false},
		{"glyph", LevelWord, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadMapsBackToSourceFrame(t *testing.T) {
	page := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	view := page.SubImage(image.Rect(50, 100, 150, 200))

	rec := &fakeRecognizer{dets: []Detection{
		{Text: "Choose", Confidence: 0.9, Left: 20, Top: 40, Width: 60, Height: 20},
		{Text: "  ", Confidence: 0.9, Left: 0, Top: 0, Width: 10, Height: 10},
	}}

	dets, err := Read(context.Background(), rec, view, Options{Scale: 2})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.seen.Dx() != 200 || rec.seen.Dy() != 200 || rec.seen.Min != (image.Point{}) {
		t.Errorf("backend should see a scaled image at the origin, got %v", rec.seen)
	}
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(dets))
	}
	got := dets[0]
	if got.Left != 60 || got.Top != 120 || got.Width != 30 || got.Height != 10 {
		t.Errorf("unexpected mapped box %+v", got)
	}
}

func TestReadClampsToView(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 50, 50))
	rec := &fakeRecognizer{dets: []Detection{{Text: "edge", Left: 40, Top: 40, Width: 30, Height: 30}}}

	dets, err := Read(context.Background(), rec, img, Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(dets) != 1 || dets[0].Box().XMax != 50 || dets[0].Box().YMax != 50 {
		t.Errorf("expected clamped box, got %+v", dets)
	}
}

func TestReadPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Read(context.Background(), &fakeRecognizer{err: boom}, image.NewGray(image.Rect(0, 0, 4, 4)), Options{})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestPreprocessGrayscaleAndScale(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 30, 20))
	for y := 10; y < 20; y++ {
		for x := 10; x < 30; x++ {
			img.Set(x, y, color.NRGBA{200, 10, 10, 255})
		}
	}

	out, scale := Preprocess(img, Options{Scale: 1.5})
	if scale != 1.5 {
		t.Errorf("scale = %v", scale)
	}
	if out.Bounds() != image.Rect(0, 0, 30, 15) {
		t.Errorf("bounds = %v", out.Bounds())
	}
	c := out.NRGBAAt(5, 5)
	if c.R != c.G || c.G != c.B {
		t.Errorf("expected gray pixel, got %v", c)
	}
}

func TestNewRecognizer(t *testing.T) {
	if r, err := NewRecognizer("none", ""); err != nil || r == nil {
		t.Errorf("none backend: %v", err)
	}
	if r, err := NewRecognizer("tesseract", "/opt/tesseract"); err != nil || r == nil {
		t.Errorf("tesseract backend: %v", err)
	}
	if _, err := NewRecognizer("abbyy", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestTesseractArgs(t *testing.T) {
	got := tesseractArgs(Options{Language: "eng", PageSegMode: 11})
	want := []string{"stdin", "stdout", "-l", "eng", "--psm", "11", "hocr"}
	if len(got) != len(want) {
		t.Fatalf("args = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
