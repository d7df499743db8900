package tagger

import "sort"

// TagScore is one averaged tag.
type TagScore struct {
	Tag   string  `yaml:"tag"`
	Score float64 `yaml:"score"`
}

// Accumulator keeps every score seen per tag, in first-seen order.
// It is not safe for concurrent use.
type Accumulator struct {
	order  []string
	scores map[string][]float64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{scores: make(map[string][]float64)}
}

// Add records one region's scores. New tags are appended in name order.
func (a *Accumulator) Add(scores map[string]float64) {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := scores[k]
		if _, seen := a.scores[k]; !seen {
			a.order = append(a.order, k)
		}
		a.scores[k] = append(a.scores[k], s)
	}
}

// Merge appends all of other's scores.
func (a *Accumulator) Merge(other *Accumulator) {
	for _, k := range other.order {
		if _, seen := a.scores[k]; !seen {
			a.order = append(a.order, k)
		}
		a.scores[k] = append(a.scores[k], other.scores[k]...)
	}
}

func (a *Accumulator) Len() int { return len(a.order) }

// Averages returns the mean score per tag.
func (a *Accumulator) Averages() []TagScore {
	out := make([]TagScore, 0, len(a.order))
	for _, k := range a.order {
		vals := a.scores[k]
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		out = append(out, TagScore{Tag: k, Score: sum / float64(len(vals))})
	}
	return out
}

// Special averages the group tags for a whole CYOA. When the CYOA is below
// minPixels or nothing was scored, every group reports zero.
func (a *Accumulator) Special(groups []string, pixels, minPixels int) []TagScore {
	zero := pixels < minPixels || a.Len() == 0
	out := make([]TagScore, 0, len(groups))
	for _, g := range groups {
		ts := TagScore{Tag: g}
		if vals := a.scores[g]; !zero && len(vals) > 0 {
			sum := 0.0
			for _, v := range vals {
				sum += v
			}
			ts.Score = sum / float64(len(vals))
		}
		out = append(out, ts)
	}
	return out
}
