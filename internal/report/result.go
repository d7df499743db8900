// Package report holds the records a run produces and writes them out.
package report

import (
	"time"

	"github.com/ivlev/cyoaseg/internal/geometry"
	"github.com/ivlev/cyoaseg/internal/keywords"
	"github.com/ivlev/cyoaseg/internal/tagger"
)

const Version = "1.0"

// Result is everything known about one CYOA after a run.
type Result struct {
	Version   string    `yaml:"version"`
	RunID     string    `yaml:"run_id"`
	Name      string    `yaml:"name"`
	Input     string    `yaml:"input"`
	CreatedAt time.Time `yaml:"created_at"`
	Pages     []Page    `yaml:"pages"`
	Summary   Summary   `yaml:"summary"`
}

// Page represents one page image and what was found on it.
type Page struct {
	Index         int                    `yaml:"index"`
	Name          string                 `yaml:"name"`
	Width         int                    `yaml:"width"`
	Height        int                    `yaml:"height"`
	Pixels        int                    `yaml:"pixels"` // Normalised area
	Sections      []geometry.BoundingBox `yaml:"sections"`
	Chunks        []Chunk                `yaml:"chunks,omitempty"`
	Illustrations []Illustration         `yaml:"illustrations,omitempty"`
	Text          string                 `yaml:"text,omitempty"`
	Tags          []tagger.TagScore      `yaml:"tags,omitempty"`
	Errors        []string               `yaml:"errors,omitempty"`
}

// Chunk is a fine row/column chunk with its recognised text.
type Chunk struct {
	Box        geometry.BoundingBox `yaml:"box"`
	Text       string               `yaml:"text,omitempty"`
	Confidence float64              `yaml:"confidence,omitempty"`
}

type Illustration struct {
	Box   geometry.BoundingBox `yaml:"box"`
	Kind  string               `yaml:"kind"`
	Score float64              `yaml:"score"`
	Tags  []tagger.TagScore    `yaml:"tags,omitempty"`
}

// Summary aggregates all pages of a CYOA.
type Summary struct {
	Pages     int                `yaml:"pages"`
	Pixels    int                `yaml:"pixels"`
	Coverage  float64            `yaml:"coverage"`
	Threshold float64            `yaml:"threshold"`
	Failures  int                `yaml:"failures"`
	Tags      []tagger.TagScore  `yaml:"tags,omitempty"`
	Special   []tagger.TagScore  `yaml:"special,omitempty"`
	Keywords  []keywords.Keyword `yaml:"keywords,omitempty"`
}

// Coverage is the share of page area covered by illustration boxes.
func Coverage(pages []Page) float64 {
	var area, covered int
	for _, p := range pages {
		area += p.Width * p.Height
		for _, ill := range p.Illustrations {
			covered += ill.Box.Area()
		}
	}
	if area == 0 {
		return 0
	}
	return float64(covered) / float64(area)
}

// Text joins page texts with spaces.
func (r *Result) Text() string {
	var out []byte
	for _, p := range r.Pages {
		if p.Text == "" {
			continue
		}
		if len(out) > 0 {
			out = append(out, ' ')
		}
		out = append(out, p.Text...)
	}
	return string(out)
}
