package analyzer

import "github.com/ivlev/cyoaseg/internal/geometry"

// Region is a detected area of a page.
type Region struct {
	Box   geometry.BoundingBox `yaml:"box"`
	Kind  string               `yaml:"kind"`  // "illustration", "text"
	Score float64              `yaml:"score"` // detector specific
}

// Detector finds illustration regions in a chunk. text holds known text
// boxes that must not be reported as illustration.
type Detector interface {
	Detect(c *Chunk, text *geometry.Index) ([]Region, error)
}
