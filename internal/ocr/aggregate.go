package ocr

import (
	"sort"
	"strings"

	"github.com/ivlev/cyoaseg/internal/geometry"
)

type parentKey struct {
	block, paragraph, line, word int
}

func keyAt(d Detection, level Level, i int) parentKey {
	switch level {
	case LevelLine:
		return parentKey{d.Block, d.Paragraph, d.Line, -1}
	case LevelParagraph:
		return parentKey{d.Block, d.Paragraph, -1, -1}
	case LevelBlock:
		return parentKey{d.Block, -1, -1, -1}
	}
	return parentKey{-1, -1, -1, i}
}

// Aggregate groups word detections by their parent at level. Each group
// becomes one detection with the union box, the words joined by spaces and
// the mean word confidence. Groups below minConfidence are dropped. Group
// order follows the first word of each group.
func Aggregate(words []Detection, level Level, minConfidence float64) []Detection {
	var order []parentKey
	groups := make(map[parentKey][]Detection)

	for i, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		k := keyAt(w, level, i)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], w)
	}

	var out []Detection
	for _, k := range order {
		members := groups[k]
		boxes := make([]geometry.BoundingBox, len(members))
		texts := make([]string, len(members))
		sum := 0.0
		for i, m := range members {
			boxes[i] = m.Box()
			texts[i] = strings.TrimSpace(m.Text)
			sum += m.Confidence
		}

		agg := members[0]
		agg.Level = level
		agg.Text = strings.Join(texts, " ")
		agg.Confidence = sum / float64(len(members))
		agg.setBox(geometry.MustUnion(boxes...))

		if agg.Confidence < minConfidence {
			continue
		}
		out = append(out, agg)
	}
	return out
}

// CharSize is the median character width over dets. It is 0 when dets
// hold no text.
func CharSize(dets []Detection) float64 {
	var sizes []float64
	for _, d := range dets {
		n := len([]rune(strings.TrimSpace(d.Text)))
		if n == 0 || d.Width <= 0 {
			continue
		}
		sizes = append(sizes, float64(d.Width)/float64(n))
	}
	if len(sizes) == 0 {
		return 0
	}
	sort.Float64s(sizes)
	mid := len(sizes) / 2
	if len(sizes)%2 == 0 {
		return (sizes[mid-1] + sizes[mid]) / 2
	}
	return sizes[mid]
}

// Rows sorts dets into text rows. The union box is swept top to bottom in
// steps of one character; a detection joins the first row whose sweep line
// falls within one step of its vertical extent. Rows are ordered left to
// right.
func Rows(dets []Detection, charSize float64) [][]Detection {
	if len(dets) == 0 {
		return nil
	}
	step := int(charSize)
	if step < 1 {
		step = 1
	}

	boxes := make([]geometry.BoundingBox, len(dets))
	for i, d := range dets {
		boxes[i] = d.Box()
	}
	area := geometry.MustUnion(boxes...)

	pending := append([]Detection(nil), dets...)
	var rows [][]Detection
	for y := area.YMin; y < area.YMax && len(pending) > 0; y += step {
		var row, rest []Detection
		for _, d := range pending {
			if d.Top-step <= y && y < d.Top+d.Height+step {
				row = append(row, d)
			} else {
				rest = append(rest, d)
			}
		}
		pending = rest
		if len(row) == 0 {
			continue
		}
		sort.SliceStable(row, func(i, j int) bool { return row[i].Left < row[j].Left })
		rows = append(rows, row)
	}
	return rows
}

// Text renders dets in reading order, one line per row.
func Text(dets []Detection) string {
	var lines []string
	for _, row := range Rows(dets, CharSize(dets)) {
		words := make([]string, len(row))
		for i, d := range row {
			words[i] = strings.TrimSpace(d.Text)
		}
		lines = append(lines, strings.Join(words, " "))
	}
	return strings.Join(lines, "\n")
}

// Cluster is a group of detections whose padded boxes touch.
type Cluster struct {
	Box     geometry.BoundingBox
	Members []Detection
}

// Clusters merges detections whose boxes, grown by pad on every side, touch
// or overlap, until no two clusters do.
func Clusters(dets []Detection, pad int) []Cluster {
	var clusters []Cluster
	for _, d := range dets {
		b := d.Box()
		placed := false
		for i := range clusters {
			if touches(clusters[i].Box, b, pad) {
				clusters[i].Box = geometry.MustUnion(clusters[i].Box, b)
				clusters[i].Members = append(clusters[i].Members, d)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, Cluster{Box: b, Members: []Detection{d}})
		}
	}

	for merged := true; merged; {
		merged = false
		for i := 0; i < len(clusters) && !merged; i++ {
			for j := i + 1; j < len(clusters); j++ {
				if !touches(clusters[i].Box, clusters[j].Box, pad) {
					continue
				}
				clusters[i].Box = geometry.MustUnion(clusters[i].Box, clusters[j].Box)
				clusters[i].Members = append(clusters[i].Members, clusters[j].Members...)
				clusters = append(clusters[:j], clusters[j+1:]...)
				merged = true
				break
			}
		}
	}
	return clusters
}

func touches(a, b geometry.BoundingBox, pad int) bool {
	dx := min(a.XMax, b.XMax) - max(a.XMin, b.XMin) + 2*pad
	dy := min(a.YMax, b.YMax) - max(a.YMin, b.YMin) + 2*pad
	return dx >= 0 && dy >= 0
}
