package analyzer

import "github.com/ivlev/cyoaseg/internal/geometry"

// MaxRecursions caps illustration recursion regardless of what a caller asks
// for. Boundary detection does not guarantee that regions shrink.
const MaxRecursions = 16

// IllustrationParams drives ImageBoxes.
type IllustrationParams struct {
	MinSize        int
	LineThickness  int
	Margin         float64
	Policy         Policy
	MinImageSize   int
	ColorThreshold int
	Recursions     int
}

// ImageBoxes decomposes c by splitting on alternating axes, starting with
// rows, for at most p.Recursions levels. Leaves smaller than MinImageSize
// are dropped, overlapping text boxes are subtracted, and what remains is
// kept when its color diversity exceeds ColorThreshold.
func ImageBoxes(c *Chunk, p IllustrationParams, text *geometry.Index) []geometry.BoundingBox {
	var boxes []geometry.BoundingBox
	for _, r := range illustrationRegions(c, p, text) {
		boxes = append(boxes, r.Box)
	}
	return boxes
}

func illustrationRegions(c *Chunk, p IllustrationParams, text *geometry.Index) []Region {
	depth := p.Recursions
	if depth > MaxRecursions {
		depth = MaxRecursions
	}

	var regions []Region
	for _, leaf := range leaves(c, p, Rows, depth) {
		box, ok := leafBox(leaf, p, text)
		if !ok {
			continue
		}
		crop := leaf.Crop(box)
		if !crop.Valid() {
			continue
		}
		if d := ColorDiversity(crop.Image()); d > p.ColorThreshold {
			regions = append(regions, Region{Box: box, Kind: "illustration", Score: float64(d)})
		}
	}
	return regions
}

// leaves recurses with an explicit depth. A chunk that cannot be split on
// one axis is retried on the other one level deeper.
func leaves(c *Chunk, p IllustrationParams, axis, depth int) []*Chunk {
	if depth <= 0 {
		return []*Chunk{c}
	}

	children := c.SubChunks(SplitParams{
		MinSize:       p.MinSize,
		LineThickness: p.LineThickness,
		Axis:          axis,
		Margin:        p.Margin,
		Policy:        p.Policy,
	})
	if len(children) == 0 {
		return leaves(c, p, 1-axis, depth-1)
	}

	var out []*Chunk
	for _, child := range children {
		out = append(out, leaves(child, p, 1-axis, depth-1)...)
	}
	return out
}

// leafBox applies the size filter and removes overlapping text.
func leafBox(leaf *Chunk, p IllustrationParams, text *geometry.Index) (geometry.BoundingBox, bool) {
	box := leaf.Box()
	if box.Width() < p.MinImageSize || box.Height() < p.MinImageSize {
		return box, false
	}

	for _, tb := range text.Intersecting(box) {
		if geometry.IntersectArea(box, tb) == 0 {
			continue
		}
		var ok bool
		if box, ok = geometry.Subtract(box, tb); !ok {
			return box, false
		}
	}

	if box.Width() < p.MinImageSize || box.Height() < p.MinImageSize {
		return box, false
	}
	return box, true
}

// DiversityDetector reports the regions found by ImageBoxes.
type DiversityDetector struct {
	Params IllustrationParams
}

func NewDiversityDetector(p IllustrationParams) *DiversityDetector {
	return &DiversityDetector{Params: p}
}

func (d *DiversityDetector) Detect(c *Chunk, text *geometry.Index) ([]Region, error) {
	return illustrationRegions(c, d.Params, text), nil
}
