package analyzer

import (
	"image"
	"sort"
)

// Axis selects the split direction. Rows produces horizontal cut lines,
// Columns vertical ones.
const (
	Columns = 0
	Rows    = 1
)

// Policy selects how separator runs become boundary proposals.
type Policy int

const (
	// Hierarchical adds the longest separators first and stops at the first
	// one that would leave an interval below the minimum size.
	Hierarchical Policy = iota
	// Greedy proposes every separator and leaves the pruning to
	// ReduceProposals.
	Greedy
)

func (p Policy) String() string {
	if p == Greedy {
		return "greedy"
	}
	return "hierarchical"
}

// Run is a maximal stretch of consecutive uniform lines.
type Run struct {
	Start, End int // inclusive
}

func (r Run) Len() int { return r.End - r.Start + 1 }

// Center is the truncated mean of the run's line indices.
func (r Run) Center() int { return (r.Start + r.End) / 2 }

// uniformLines lists the lines along axis where the binary image holds a
// single value: all background or all foreground.
func uniformLines(bin *image.Gray, axis int) []int {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()
	var lines []int

	if axis == Rows {
		for y := 0; y < h; y++ {
			row := bin.Pix[y*bin.Stride : y*bin.Stride+w]
			uniform := true
			for _, v := range row[1:] {
				if v != row[0] {
					uniform = false
					break
				}
			}
			if uniform {
				lines = append(lines, y)
			}
		}
		return lines
	}

	for x := 0; x < w; x++ {
		first := bin.Pix[x]
		uniform := true
		for y := 1; y < h; y++ {
			if bin.Pix[y*bin.Stride+x] != first {
				uniform = false
				break
			}
		}
		if uniform {
			lines = append(lines, x)
		}
	}
	return lines
}

// groupRuns groups sorted line indices into runs of neighbours.
func groupRuns(sorted []int) []Run {
	var runs []Run
	for _, i := range sorted {
		if n := len(runs); n > 0 && i-runs[n-1].End <= 1 {
			runs[n-1].End = i
			continue
		}
		runs = append(runs, Run{Start: i, End: i})
	}
	return runs
}

// separatorRuns keeps runs longer than lineThickness. A run covering the
// whole extent separates nothing and is dropped.
func separatorRuns(lines []int, extent, lineThickness int) []Run {
	var kept []Run
	for _, r := range groupRuns(lines) {
		if r.Len() <= lineThickness {
			continue
		}
		if r.Start == 0 && r.End >= extent-1 {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// Proposals turns separator runs into a sorted boundary list that always
// starts with 0 and ends with extent.
func (p Policy) Proposals(runs []Run, extent, minSize int) []int {
	if p == Greedy {
		out := make([]int, 0, len(runs)+2)
		out = append(out, 0)
		for _, r := range runs {
			out = append(out, r.Center())
		}
		return append(out, extent)
	}

	ordered := make([]Run, len(runs))
	copy(ordered, runs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Len() > ordered[j].Len()
	})

	accepted := []int{0, extent}
	for _, r := range ordered {
		query := append(append([]int(nil), accepted...), r.Center())
		sort.Ints(query)
		if !CheckProposals(query, minSize) {
			break
		}
		accepted = query
	}
	return accepted
}
