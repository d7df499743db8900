package config

import (
	"github.com/ivlev/cyoaseg/internal/analyzer"
	"github.com/ivlev/cyoaseg/internal/ocr"
)

// SplitParams converts a chunking pass for the given axis. Policies are
// checked by Validate; an unknown name falls back to hierarchical.
func (c ChunkConfig) SplitParams(axis int) analyzer.SplitParams {
	policy, _ := analyzer.ParsePolicy(c.Policy)
	return analyzer.SplitParams{
		MinSize:       c.MinSize,
		LineThickness: c.LineThickness,
		Axis:          axis,
		Margin:        c.Margin,
		Policy:        policy,
	}
}

func (c IllustrationConfig) Params() analyzer.IllustrationParams {
	policy, _ := analyzer.ParsePolicy(c.Policy)
	return analyzer.IllustrationParams{
		MinSize:        c.MinSize,
		LineThickness:  c.LineThickness,
		Margin:         c.Margin,
		Policy:         policy,
		MinImageSize:   c.MinImageSize,
		ColorThreshold: c.ColorThreshold,
		Recursions:     c.Recursions,
	}
}

func (c OCRConfig) Options() ocr.Options {
	return ocr.Options{
		Language:    c.Language,
		PageSegMode: c.PageSegMode,
		Scale:       c.Scale,
		Blur:        c.Blur,
	}
}

func (c OCRConfig) AggregateLevel() ocr.Level {
	level, _ := ocr.ParseLevel(c.Level)
	return level
}
