// Package geometry holds the rectangle arithmetic shared by the chunker,
// the illustration detector and the OCR aggregation.
package geometry

import (
	"fmt"
	"image"

	cerrors "github.com/ivlev/cyoaseg/internal/errors"
)

// BoundingBox is an axis-aligned rectangle in page pixels. Max edges are
// exclusive, so the width is XMax-XMin.
type BoundingBox struct {
	XMin int `yaml:"xmin"`
	XMax int `yaml:"xmax"`
	YMin int `yaml:"ymin"`
	YMax int `yaml:"ymax"`
}

// FromXYWH converts the left/top/width/height convention used by OCR engines.
func FromXYWH(left, top, width, height int) BoundingBox {
	return BoundingBox{XMin: left, XMax: left + width, YMin: top, YMax: top + height}
}

// FromRect converts an image.Rectangle.
func FromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{XMin: r.Min.X, XMax: r.Max.X, YMin: r.Min.Y, YMax: r.Max.Y}
}

// Rect converts back to an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.XMin, b.YMin, b.XMax, b.YMax)
}

func (b BoundingBox) Width() int  { return b.XMax - b.XMin }
func (b BoundingBox) Height() int { return b.YMax - b.YMin }

// Area is zero for invalid boxes.
func (b BoundingBox) Area() int {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid reports whether the box has positive width and height.
func (b BoundingBox) Valid() bool {
	return b.XMax > b.XMin && b.YMax > b.YMin
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.XMin, b.XMax, b.YMin, b.YMax)
}

// IntersectArea returns the overlap area of a and b. Touching or disjoint
// boxes yield 0.
func IntersectArea(a, b BoundingBox) int {
	dx := min(a.XMax, b.XMax) - max(a.XMin, b.XMin)
	dy := min(a.YMax, b.YMax) - max(a.YMin, b.YMin)
	if dx > 0 && dy > 0 {
		return dx * dy
	}
	return 0
}

// Intersects reports a nonzero-area overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return IntersectArea(b, o) > 0
}

// Contains reports whether o lies completely inside b.
func (b BoundingBox) Contains(o BoundingBox) bool {
	return o.XMin >= b.XMin && o.XMax <= b.XMax && o.YMin >= b.YMin && o.YMax <= b.YMax
}

// Union returns the smallest box containing every box. An empty list is a
// caller bug and yields ErrEmptyInput.
func Union(boxes ...BoundingBox) (BoundingBox, error) {
	if len(boxes) == 0 {
		return BoundingBox{}, fmt.Errorf("union: %w", cerrors.ErrEmptyInput)
	}
	u := boxes[0]
	for _, b := range boxes[1:] {
		u.XMin = min(u.XMin, b.XMin)
		u.XMax = max(u.XMax, b.XMax)
		u.YMin = min(u.YMin, b.YMin)
		u.YMax = max(u.YMax, b.YMax)
	}
	return u, nil
}

// MustUnion is Union for callers that already guarantee a non-empty list.
func MustUnion(boxes ...BoundingBox) BoundingBox {
	u, err := Union(boxes...)
	if err != nil {
		panic(err)
	}
	return u
}

// Subtract removes box from chunk by cropping one side of chunk up to the
// box edge. Of the four remaining slivers the largest one wins; ties go to
// north, then east, then south, then west. ok is false when nothing valid
// remains.
func Subtract(chunk, box BoundingBox) (remaining BoundingBox, ok bool) {
	candidates := [4]BoundingBox{
		// north
		{XMin: chunk.XMin, XMax: chunk.XMax, YMin: chunk.YMin, YMax: min(box.YMin, chunk.YMax)},
		// east
		{XMin: max(box.XMax, chunk.XMin), XMax: chunk.XMax, YMin: chunk.YMin, YMax: chunk.YMax},
		// south
		{XMin: chunk.XMin, XMax: chunk.XMax, YMin: max(box.YMax, chunk.YMin), YMax: chunk.YMax},
		// west
		{XMin: chunk.XMin, XMax: min(box.XMin, chunk.XMax), YMin: chunk.YMin, YMax: chunk.YMax},
	}

	best := -1
	bestArea := 0
	for i, c := range candidates {
		a := c.Area()
		if best == -1 || a > bestArea {
			best, bestArea = i, a
		}
	}

	remaining = candidates[best]
	if !remaining.Valid() {
		return BoundingBox{}, false
	}
	return remaining, true
}

// Clamp limits the box to [0,width]x[0,height].
func (b BoundingBox) Clamp(width, height int) BoundingBox {
	return BoundingBox{
		XMin: clamp(b.XMin, width),
		XMax: clamp(b.XMax, width),
		YMin: clamp(b.YMin, height),
		YMax: clamp(b.YMax, height),
	}
}

// Pad grows the box by px horizontally and py vertically, then clamps it.
func (b BoundingBox) Pad(px, py, width, height int) BoundingBox {
	return BoundingBox{
		XMin: b.XMin - px,
		XMax: b.XMax + px,
		YMin: b.YMin - py,
		YMax: b.YMax + py,
	}.Clamp(width, height)
}

// Translate shifts the box by (dx, dy).
func (b BoundingBox) Translate(dx, dy int) BoundingBox {
	return BoundingBox{XMin: b.XMin + dx, XMax: b.XMax + dx, YMin: b.YMin + dy, YMax: b.YMax + dy}
}

// Span returns the box extent along an axis: rows (1) give the vertical
// span, columns (0) the horizontal one.
func (b BoundingBox) Span(axis int) (start, end int) {
	if axis == 1 {
		return b.YMin, b.YMax
	}
	return b.XMin, b.XMax
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	if limit > 0 && v > limit {
		return limit
	}
	return v
}
