package source

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestImageSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 4, 3)
	writePNG(t, filepath.Join(dir, "a.png"), 2, 5)
	writePNG(t, filepath.Join(dir, "extra", "c.PNG"), 1, 1)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", src.PageCount())
	}
	wantNames := []string{"a.png", "b.png", "extra/c.PNG"}
	for i, want := range wantNames {
		if got := src.PageName(i); got != want {
			t.Errorf("PageName(%d) = %q, want %q", i, got, want)
		}
	}

	w, h, err := src.GetPageDimensions(1)
	if err != nil || w != 4 || h != 3 {
		t.Errorf("dimensions = %vx%v, %v", w, h, err)
	}

	img, err := src.RenderPage(0, 150)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 5 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestOpenSingleImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	writePNG(t, path, 3, 3)

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.PageCount() != 1 || src.PageName(0) != "page.png" {
		t.Errorf("unexpected source %d %q", src.PageCount(), src.PageName(0))
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing path")
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestNormalizedSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"tall shrinks to max width", 2000, 6000, 1000, 3000},
		{"tall below limit", 800, 3000, 800, 3000},
		{"wide uses wide limit", 4000, 1000, 2000, 500},
		{"wide below limit", 1500, 1000, 1500, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := NormalizedSize(tt.w, tt.h, 1000, 2000)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
	if got := NormalizedArea(2000, 6000, 1000, 2000); got != 3000000 {
		t.Errorf("NormalizedArea = %d", got)
	}
	if w, h := NormalizedSize(5000, 100, 0, 0); w != 5000 || h != 100 {
		t.Errorf("disabled limits changed size: %dx%d", w, h)
	}
}

func TestNormalize(t *testing.T) {
	src := image.NewNRGBA(image.Rect(10, 10, 110, 60))
	for y := 10; y < 60; y++ {
		for x := 10; x < 110; x++ {
			src.SetNRGBA(x, y, color.NRGBA{200, 100, 50, 255})
		}
	}

	out := Normalize(src, 40, 50)
	if out.Bounds() != image.Rect(0, 0, 50, 25) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if c := out.NRGBAAt(25, 12); c.R < 195 || c.R > 205 {
		t.Errorf("unexpected colour %v", c)
	}

	same := Normalize(src, 400, 500)
	if same.Bounds() != image.Rect(0, 0, 100, 50) || same.NRGBAAt(0, 0).G != 100 {
		t.Errorf("unscaled copy wrong: %v %v", same.Bounds(), same.NRGBAAt(0, 0))
	}
}
