package geometry

import (
	"sort"

	"github.com/tidwall/rtree"
)

// Index is a spatial index of boxes. The zero value is empty and ready to use.
// It is not safe for concurrent writes.
type Index struct {
	tree  rtree.RTreeG[int]
	boxes []BoundingBox
}

// NewIndex builds an index over boxes. Invalid boxes are skipped.
func NewIndex(boxes []BoundingBox) *Index {
	idx := &Index{}
	for _, b := range boxes {
		idx.Insert(b)
	}
	return idx
}

// Insert adds a box. Invalid boxes are ignored.
func (idx *Index) Insert(b BoundingBox) {
	if !b.Valid() {
		return
	}
	idx.tree.Insert(
		[2]float64{float64(b.XMin), float64(b.YMin)},
		[2]float64{float64(b.XMax), float64(b.YMax)},
		len(idx.boxes),
	)
	idx.boxes = append(idx.boxes, b)
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.boxes)
}

// Boxes returns the indexed boxes in insertion order.
func (idx *Index) Boxes() []BoundingBox {
	if idx == nil {
		return nil
	}
	return idx.boxes
}

// Intersecting returns the boxes overlapping q with nonzero area, in
// insertion order.
func (idx *Index) Intersecting(q BoundingBox) []BoundingBox {
	if idx == nil || len(idx.boxes) == 0 {
		return nil
	}

	var hits []int
	idx.tree.Search(
		[2]float64{float64(q.XMin), float64(q.YMin)},
		[2]float64{float64(q.XMax), float64(q.YMax)},
		func(_, _ [2]float64, i int) bool {
			// the tree also reports edge contact
			if IntersectArea(idx.boxes[i], q) > 0 {
				hits = append(hits, i)
			}
			return true
		},
	)
	sort.Ints(hits)

	out := make([]BoundingBox, len(hits))
	for i, h := range hits {
		out[i] = idx.boxes[h]
	}
	return out
}
