package analyzer

import "sort"

// Interval is the span between two adjacent boundaries.
type Interval struct {
	Start, End, Delta int
}

// Intervals pairs adjacent boundaries.
func Intervals(bounds []int) []Interval {
	if len(bounds) < 2 {
		return nil
	}
	out := make([]Interval, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		out = append(out, Interval{Start: bounds[i], End: bounds[i+1], Delta: bounds[i+1] - bounds[i]})
	}
	return out
}

// CheckProposals reports whether every interval is at least minSize.
func CheckProposals(bounds []int, minSize int) bool {
	for _, iv := range Intervals(bounds) {
		if iv.Delta < minSize {
			return false
		}
	}
	return true
}

// ReduceProposals removes boundaries until every interval is at least
// minSize or only the first and last boundary are left. The input is not
// modified.
func ReduceProposals(bounds []int, minSize int) []int {
	current := normalize(bounds)
	for len(current) > 2 && !CheckProposals(current, minSize) {
		current = reduceStep(current)
	}
	return current
}

// reduceStep drops one boundary of the smallest interval (first one on
// ties). The first and last boundaries are never dropped; an inner
// interval gives up the boundary it shares with its smaller neighbour.
func reduceStep(bounds []int) []int {
	ivs := Intervals(bounds)
	smallest := 0
	for i, iv := range ivs {
		if iv.Delta < ivs[smallest].Delta {
			smallest = i
		}
	}

	drop := smallest + 1 // its end
	switch {
	case smallest == 0:
	case smallest == len(ivs)-1:
		drop = smallest
	case ivs[smallest-1].Delta < ivs[smallest+1].Delta:
		drop = smallest
	}
	return append(bounds[:drop:drop], bounds[drop+1:]...)
}

func normalize(bounds []int) []int {
	out := append([]int(nil), bounds...)
	sort.Ints(out)
	uniq := out[:0]
	for i, b := range out {
		if i == 0 || b != out[i-1] {
			uniq = append(uniq, b)
		}
	}
	return uniq
}
