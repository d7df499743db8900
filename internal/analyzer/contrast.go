package analyzer

import (
	"image"
	"math"

	"github.com/ivlev/cyoaseg/internal/geometry"
	"github.com/ivlev/cyoaseg/internal/system"
)

// ContrastDetector finds illustration candidates as connected areas of
// strong gradient. It ignores layout separators, so it also catches art
// that bleeds into text columns.
type ContrastDetector struct {
	MinBlockArea  int     // pixels
	EdgeThreshold float64 // Sobel magnitude
	DilateSize    int
	DilateRounds  int
	MinEdgeRatio  float64 // share of edge pixels inside a candidate
}

func NewContrastDetector(minImageSize int) *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  minImageSize * minImageSize,
		EdgeThreshold: 30.0,
		DilateSize:    5,
		DilateRounds:  2,
		MinEdgeRatio:  0.02,
	}
}

func (d *ContrastDetector) Detect(c *Chunk, text *geometry.Index) ([]Region, error) {
	area := c.Image().Bounds()
	gray := toGrayscale(c.Image(), area)
	defer system.PutGray(gray)

	edges := sobel(gray, d.EdgeThreshold)
	mask := dilate(edges, d.DilateSize, d.DilateRounds)

	var regions []Region
	for _, r := range components(mask) {
		box := geometry.FromRect(r.Add(area.Min))
		for _, tb := range text.Intersecting(box) {
			if !box.Intersects(tb) {
				continue
			}
			var ok bool
			if box, ok = geometry.Subtract(box, tb); !ok {
				break
			}
		}
		if box.Area() < d.MinBlockArea {
			continue
		}

		ratio := edgeRatio(edges, box.Translate(-area.Min.X, -area.Min.Y))
		if ratio < d.MinEdgeRatio {
			continue
		}
		regions = append(regions, Region{Box: box, Kind: "illustration", Score: ratio})
	}
	return regions, nil
}

func sobel(gray *image.Gray, threshold float64) *image.Gray {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	edges := image.NewGray(image.Rect(0, 0, w, h))
	at := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) - 2*at(x-1, y) + 2*at(x+1, y) - at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) + at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if math.Hypot(gx, gy) > threshold {
				edges.Pix[y*edges.Stride+x] = 255
			}
		}
	}
	return edges
}

func dilate(img *image.Gray, size, rounds int) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	half := size / 2
	cur := img

	for r := 0; r < rounds; r++ {
		next := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if cur.Pix[y*cur.Stride+x] == 0 {
					continue
				}
				for ky := max(0, y-half); ky <= min(h-1, y+half); ky++ {
					row := next.Pix[ky*next.Stride:]
					for kx := max(0, x-half); kx <= min(w-1, x+half); kx++ {
						row[kx] = 255
					}
				}
			}
		}
		cur = next
	}
	return cur
}

// components returns the bounding rectangles of 4-connected white areas.
func components(mask *image.Gray) []image.Rectangle {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	visited := make([]bool, w*h)
	var rects []image.Rectangle

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask.Pix[y*mask.Stride+x] > 128 && !visited[y*w+x] {
				rects = append(rects, floodFill(mask, visited, x, y))
			}
		}
	}
	return rects
}

func floodFill(mask *image.Gray, visited []bool, startX, startY int) image.Rectangle {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	r := image.Rect(startX, startY, startX+1, startY+1)
	stack := []image.Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= w || p.Y < 0 || p.Y >= h {
			continue
		}
		if visited[p.Y*w+p.X] || mask.Pix[p.Y*mask.Stride+p.X] <= 128 {
			continue
		}
		visited[p.Y*w+p.X] = true
		r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		stack = append(stack,
			image.Point{X: p.X + 1, Y: p.Y},
			image.Point{X: p.X - 1, Y: p.Y},
			image.Point{X: p.X, Y: p.Y + 1},
			image.Point{X: p.X, Y: p.Y - 1},
		)
	}
	return r
}

func edgeRatio(edges *image.Gray, box geometry.BoundingBox) float64 {
	box = box.Clamp(edges.Rect.Dx(), edges.Rect.Dy())
	if !box.Valid() {
		return 0
	}
	n := 0
	for y := box.YMin; y < box.YMax; y++ {
		for _, v := range edges.Pix[y*edges.Stride+box.XMin : y*edges.Stride+box.XMax] {
			if v > 0 {
				n++
			}
		}
	}
	return float64(n) / float64(box.Area())
}
