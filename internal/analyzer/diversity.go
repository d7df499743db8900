package analyzer

import "image"

// ColorDiversity counts the distinct RGB colors in img. Flat backgrounds
// score low, illustrations high.
func ColorDiversity(img image.Image) int {
	seen := make(map[int]struct{})
	b := img.Bounds()

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := nrgba.PixOffset(b.Min.X, y)
			for x := b.Min.X; x < b.Max.X; x, i = x+1, i+4 {
				seen[colorKey(nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])] = struct{}{}
			}
		}
		return len(seen)
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			seen[colorKey(uint8(r>>8), uint8(g>>8), uint8(bl>>8))] = struct{}{}
		}
	}
	return len(seen)
}

// colorKey packs one pixel so that distinct 8-bit triples never collide.
func colorKey(r, g, b uint8) int {
	return int(b) + 1000*(int(g)+1) + 1000*1000*(int(r)+1)
}
