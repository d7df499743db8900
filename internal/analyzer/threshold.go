package analyzer

import (
	"image"

	"github.com/ivlev/cyoaseg/internal/system"
)

// luminance uses the BT.601 weights, rounded to the nearest integer.
func luminance(r, g, b uint32) uint8 {
	return uint8((299*r + 587*g + 114*b + 500) / 1000)
}

// toGrayscale writes the luminance of src into a pooled buffer anchored at
// the origin. Release it with system.PutGray.
func toGrayscale(src image.Image, area image.Rectangle) *image.Gray {
	w, h := area.Dx(), area.Dy()
	gray := system.GetGray(w, h)

	if nrgba, ok := src.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := nrgba.PixOffset(area.Min.X, area.Min.Y+y)
			out := gray.Pix[y*gray.Stride : y*gray.Stride+w]
			for x := 0; x < w; x++ {
				i := row + x*4
				out[x] = luminance(uint32(nrgba.Pix[i]), uint32(nrgba.Pix[i+1]), uint32(nrgba.Pix[i+2]))
			}
		}
		return gray
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(area.Min.X+x, area.Min.Y+y).RGBA()
			gray.Pix[y*gray.Stride+x] = luminance(r>>8, g>>8, b>>8)
		}
	}
	return gray
}

// histogram counts gray levels.
func histogram(gray *image.Gray) [256]int {
	var hist [256]int
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	for y := 0; y < h; y++ {
		for _, v := range gray.Pix[y*gray.Stride : y*gray.Stride+w] {
			hist[v]++
		}
	}
	return hist
}

// otsuLevel picks the level t maximising the between-class variance of
// {v <= t} and {v > t}. The first maximum wins. degenerate is true when the
// histogram holds a single gray level and no split exists.
func otsuLevel(hist [256]int) (t uint8, degenerate bool) {
	total := 0
	sum := 0.0
	levels := 0
	for i, n := range hist {
		total += n
		sum += float64(i * n)
		if n > 0 {
			levels++
		}
	}
	if levels < 2 {
		return 0, true
	}

	var (
		best    float64
		bestT   int
		weightB int
		sumB    float64
	)
	for i := 0; i < 256; i++ {
		weightB += hist[i]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(i * hist[i])

		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			bestT = i
		}
	}
	return uint8(bestT), false
}

// binarize thresholds area of src with Otsu's level. Foreground (dark, at
// or below the level) becomes 255 and background 0. The returned buffer is
// pooled; release it with system.PutGray.
func binarize(src image.Image, area image.Rectangle) (bin *image.Gray, degenerate bool) {
	bin = toGrayscale(src, area)
	t, degenerate := otsuLevel(histogram(bin))

	w, h := area.Dx(), area.Dy()
	for y := 0; y < h; y++ {
		row := bin.Pix[y*bin.Stride : y*bin.Stride+w]
		for x, v := range row {
			if v > t {
				row[x] = 0
			} else {
				row[x] = 255
			}
		}
	}
	return bin, degenerate
}
