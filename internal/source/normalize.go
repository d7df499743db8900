package source

import (
	"image"

	"golang.org/x/image/draw"
)

// NormalizedSize scales (w, h) down so that a tall page is at most maxWidth
// wide and a wide page at most maxWideWidth wide. Pages are never enlarged.
// A non-positive limit disables scaling for that orientation.
func NormalizedSize(w, h, maxWidth, maxWideWidth int) (int, int) {
	limit := maxWidth
	if w >= h {
		limit = maxWideWidth
	}
	if limit <= 0 || w <= limit {
		return w, h
	}
	nh := h * limit / w
	if nh < 1 {
		nh = 1
	}
	return limit, nh
}

// NormalizedArea is the pixel count of a page after normalisation.
func NormalizedArea(w, h, maxWidth, maxWideWidth int) int {
	nw, nh := NormalizedSize(w, h, maxWidth, maxWideWidth)
	return nw * nh
}

// Normalize returns img as NRGBA at its normalised size, with its origin at
// (0,0).
func Normalize(img image.Image, maxWidth, maxWideWidth int) *image.NRGBA {
	b := img.Bounds()
	nw, nh := NormalizedSize(b.Dx(), b.Dy(), maxWidth, maxWideWidth)

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	if nw == b.Dx() && nh == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
