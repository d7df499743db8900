package analyzer

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/ivlev/cyoaseg/internal/geometry"
	"github.com/ivlev/cyoaseg/internal/system"
)

// Chunk is a rectangular region of a page. It keeps a view into the page
// pixels; coordinates are absolute page coordinates.
type Chunk struct {
	X, Y          int
	Width, Height int

	// Filled by the orchestrator after recognition.
	Text       string
	TextBoxes  []geometry.BoundingBox
	Confidence float64

	img *image.NRGBA
}

// NewChunk wraps a whole page. Images that are not NRGBA are converted once.
func NewChunk(img image.Image) *Chunk {
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = imaging.Clone(img)
	}
	b := nrgba.Bounds()
	return &Chunk{X: b.Min.X, Y: b.Min.Y, Width: b.Dx(), Height: b.Dy(), img: nrgba}
}

// Image is the chunk's pixel view. Its bounds equal Box().Rect().
func (c *Chunk) Image() *image.NRGBA { return c.img }

func (c *Chunk) Box() geometry.BoundingBox {
	return geometry.FromXYWH(c.X, c.Y, c.Width, c.Height)
}

func (c *Chunk) Valid() bool {
	return c != nil && c.Width > 0 && c.Height > 0
}

// Extent is the size along axis: height for Rows, width for Columns.
func (c *Chunk) Extent(axis int) int {
	if axis == Rows {
		return c.Height
	}
	return c.Width
}

// Crop returns the part of c inside box, or nil when nothing valid is left.
func (c *Chunk) Crop(box geometry.BoundingBox) *Chunk {
	r := box.Rect().Intersect(c.img.Bounds())
	if r.Empty() {
		return nil
	}
	view := c.img.SubImage(r).(*image.NRGBA)
	return &Chunk{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy(), img: view}
}

// SplitParams controls one SubChunks call.
type SplitParams struct {
	MinSize       int
	LineThickness int
	Axis          int
	// Margin is stripped from both edges of the non-split axis before
	// thresholding. Values below 1 are a fraction of that extent.
	Margin float64
	// Exclusions holds boxes no boundary may cut through.
	Exclusions *geometry.Index
	Policy     Policy
}

// SubChunks splits c along p.Axis at uniform separator bands. A chunk whose
// extent is at most p.MinSize is terminal and yields nil. A chunk without a
// usable separator yields a single child equal to itself.
func (c *Chunk) SubChunks(p SplitParams) []*Chunk {
	extent := c.Extent(p.Axis)
	if extent <= p.MinSize {
		return nil
	}

	bounds := c.proposals(p, extent)

	if p.Exclusions.Len() > 0 {
		bounds = c.dropExcluded(bounds, p)
	}

	bounds = ReduceProposals(bounds, p.MinSize)

	var children []*Chunk
	for _, iv := range Intervals(bounds) {
		var box geometry.BoundingBox
		if p.Axis == Rows {
			box = geometry.BoundingBox{XMin: c.X, XMax: c.X + c.Width, YMin: c.Y + iv.Start, YMax: c.Y + iv.End}
		} else {
			box = geometry.BoundingBox{XMin: c.X + iv.Start, XMax: c.X + iv.End, YMin: c.Y, YMax: c.Y + c.Height}
		}
		if !box.Valid() {
			continue
		}
		if child := c.Crop(box); child.Valid() {
			children = append(children, child)
		}
	}
	return children
}

// proposals runs the boundary detector on the margin-stripped region.
func (c *Chunk) proposals(p SplitParams, extent int) []int {
	area := c.detectionArea(p)
	bin, degenerate := binarize(c.img, area)
	defer system.PutGray(bin)

	if degenerate {
		return []int{0, extent}
	}

	runs := separatorRuns(uniformLines(bin, p.Axis), extent, p.LineThickness)
	return p.Policy.Proposals(runs, extent, p.MinSize)
}

// detectionArea strips the margin from the edges parallel to the split
// lines. Split coordinates are unaffected.
func (c *Chunk) detectionArea(p SplitParams) image.Rectangle {
	full := c.img.Bounds()
	thickness := c.Extent(1 - p.Axis)

	m := int(p.Margin)
	if p.Margin > 0 && p.Margin < 1 {
		m = int(p.Margin * float64(thickness))
	}
	if m <= 0 || 2*m >= thickness {
		return full
	}

	if p.Axis == Rows {
		return image.Rect(full.Min.X+m, full.Min.Y, full.Max.X-m, full.Max.Y)
	}
	return image.Rect(full.Min.X, full.Min.Y+m, full.Max.X, full.Max.Y-m)
}

// dropExcluded removes inner boundaries lying strictly inside the span of
// an exclusion box that overlaps the chunk. Box coordinates are absolute,
// boundaries are relative to the chunk origin.
func (c *Chunk) dropExcluded(bounds []int, p SplitParams) []int {
	hits := p.Exclusions.Intersecting(c.Box())
	if len(hits) == 0 || len(bounds) <= 2 {
		return bounds
	}

	offset := c.X
	if p.Axis == Rows {
		offset = c.Y
	}

	kept := []int{bounds[0]}
	for _, b := range bounds[1 : len(bounds)-1] {
		abs := offset + b
		cut := false
		for _, h := range hits {
			start, end := h.Span(p.Axis)
			if start < abs && abs < end {
				cut = true
				break
			}
		}
		if !cut {
			kept = append(kept, b)
		}
	}
	return append(kept, bounds[len(bounds)-1])
}
