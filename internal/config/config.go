// Package config holds the explicit configuration value handed to the
// pipeline. Nothing here is global: callers build a Config, adjust it and
// pass it on.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/cyoaseg/internal/analyzer"
	cerrors "github.com/ivlev/cyoaseg/internal/errors"
	"github.com/ivlev/cyoaseg/internal/ocr"
)

type Config struct {
	InputPath    string `yaml:"input"`
	OutputDir    string `yaml:"output"`
	Workers      int    `yaml:"workers"`
	BuildVersion string `yaml:"-"`

	Source        SourceConfig       `yaml:"source"`
	Sections      ChunkConfig        `yaml:"sections"`
	Fine          ChunkConfig        `yaml:"fine"`
	Illustrations IllustrationConfig `yaml:"illustrations"`
	OCR           OCRConfig          `yaml:"ocr"`
	Tagger        TaggerConfig       `yaml:"tagger"`
	Keywords      KeywordsConfig     `yaml:"keywords"`
	Collaborators CollaboratorConfig `yaml:"collaborators"`
	Log           LogConfig          `yaml:"log"`
}

type SourceConfig struct {
	DPI          int `yaml:"dpi"`
	MaxWidth     int `yaml:"max_width"`
	MaxWideWidth int `yaml:"max_wide_width"`
}

// ChunkConfig parameterises one chunking pass.
type ChunkConfig struct {
	MinSize       int     `yaml:"min_size"`
	LineThickness int     `yaml:"line_thickness"`
	Margin        float64 `yaml:"margin"`
	Policy        string  `yaml:"policy"`
}

type IllustrationConfig struct {
	ChunkConfig    `yaml:",inline"`
	Detector       string `yaml:"detector"`
	MinImageSize   int    `yaml:"min_image_size"`
	ColorThreshold int    `yaml:"color_threshold"`
	Recursions     int    `yaml:"recursions"`
}

type OCRConfig struct {
	Backend       string  `yaml:"backend"`
	Binary        string  `yaml:"binary"`
	Language      string  `yaml:"language"`
	PageSegMode   int     `yaml:"psm"`
	Scale         float64 `yaml:"scale"`
	Blur          float64 `yaml:"blur"`
	MinConfidence float64 `yaml:"min_confidence"`
	Level         string  `yaml:"level"`
	// ClusterPad is the padding, in character sizes, used when merging
	// preliminary text boxes into exclusion zones.
	ClusterPad float64 `yaml:"cluster_pad"`
}

type TaggerConfig struct {
	Backend   string              `yaml:"backend"`
	Binary    string              `yaml:"binary"`
	Args      []string            `yaml:"args"`
	InputSize int                 `yaml:"input_size"`
	Threshold float64             `yaml:"threshold"`
	Groups    map[string][]string `yaml:"groups"`
	MinPixels int                 `yaml:"min_pixels"`
}

type KeywordsConfig struct {
	Backend   string   `yaml:"backend"`
	Binary    string   `yaml:"binary"`
	Args      []string `yaml:"args"`
	MinChars  int      `yaml:"min_chars"`
	Threshold float64  `yaml:"threshold"`
	TopN      int      `yaml:"top_n"`
}

// CollaboratorConfig bounds calls to OCR, tagger and keyword backends.
type CollaboratorConfig struct {
	PoolSize   int           `yaml:"pool_size"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Timeout    time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		OutputDir: "output",
		Source: SourceConfig{
			DPI:          150,
			MaxWidth:     1281,
			MaxWideWidth: 2560,
		},
		Sections: ChunkConfig{MinSize: 200, LineThickness: 10, Policy: "hierarchical"},
		Fine:     ChunkConfig{MinSize: 20, LineThickness: 2, Policy: "hierarchical"},
		Illustrations: IllustrationConfig{
			ChunkConfig:    ChunkConfig{MinSize: 50, LineThickness: 3, Policy: "hierarchical"},
			Detector:       "diversity",
			MinImageSize:   100,
			ColorThreshold: 2000,
			Recursions:     6,
		},
		OCR: OCRConfig{
			Backend:       "tesseract",
			Binary:        "tesseract",
			Language:      "eng",
			PageSegMode:   11,
			Scale:         2,
			MinConfidence: 0.3,
			Level:         "block",
			ClusterPad:    2,
		},
		Tagger: TaggerConfig{
			Backend:   "none",
			InputSize: 512,
			Threshold: 0.3,
			Groups: map[string][]string{
				"dd_girl": {"1girl", "2girls", "3girls", "4girls", "5girls", "6+girls", "multiple_girls"},
				"dd_boy":  {"1boy", "2boys", "3boys", "4boys", "5boys", "6+boys", "multiple_boys"},
			},
			MinPixels: 4194304,
		},
		Keywords: KeywordsConfig{
			Backend:   "none",
			MinChars:  50,
			Threshold: 0.3,
			TopN:      10,
		},
		Collaborators: CollaboratorConfig{
			PoolSize:   2,
			Retries:    2,
			RetryDelay: 500 * time.Millisecond,
			Timeout:    2 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding what is already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks every numeric parameter.
func (c Config) Validate() error {
	checks := []struct {
		field string
		value any
		ok    bool
	}{
		{"workers", c.Workers, c.Workers >= 0},
		{"source.dpi", c.Source.DPI, c.Source.DPI > 0},
		{"source.max_width", c.Source.MaxWidth, c.Source.MaxWidth >= 0},
		{"source.max_wide_width", c.Source.MaxWideWidth, c.Source.MaxWideWidth >= 0},
		{"sections.min_size", c.Sections.MinSize, c.Sections.MinSize > 0},
		{"sections.line_thickness", c.Sections.LineThickness, c.Sections.LineThickness >= 0},
		{"sections.margin", c.Sections.Margin, c.Sections.Margin >= 0},
		{"fine.min_size", c.Fine.MinSize, c.Fine.MinSize > 0},
		{"fine.line_thickness", c.Fine.LineThickness, c.Fine.LineThickness >= 0},
		{"fine.margin", c.Fine.Margin, c.Fine.Margin >= 0},
		{"illustrations.min_size", c.Illustrations.MinSize, c.Illustrations.MinSize > 0},
		{"illustrations.line_thickness", c.Illustrations.LineThickness, c.Illustrations.LineThickness >= 0},
		{"illustrations.margin", c.Illustrations.Margin, c.Illustrations.Margin >= 0},
		{"illustrations.min_image_size", c.Illustrations.MinImageSize, c.Illustrations.MinImageSize > 0},
		{"illustrations.color_threshold", c.Illustrations.ColorThreshold, c.Illustrations.ColorThreshold >= 0},
		{"illustrations.recursions", c.Illustrations.Recursions,
			c.Illustrations.Recursions > 0 && c.Illustrations.Recursions <= analyzer.MaxRecursions},
		{"ocr.psm", c.OCR.PageSegMode, c.OCR.PageSegMode >= 0 && c.OCR.PageSegMode <= 13},
		{"ocr.scale", c.OCR.Scale, c.OCR.Scale > 0},
		{"ocr.blur", c.OCR.Blur, c.OCR.Blur >= 0},
		{"ocr.min_confidence", c.OCR.MinConfidence, inUnit(c.OCR.MinConfidence)},
		{"ocr.cluster_pad", c.OCR.ClusterPad, c.OCR.ClusterPad >= 0},
		{"tagger.input_size", c.Tagger.InputSize, c.Tagger.InputSize > 0},
		{"tagger.threshold", c.Tagger.Threshold, inUnit(c.Tagger.Threshold)},
		{"tagger.min_pixels", c.Tagger.MinPixels, c.Tagger.MinPixels >= 0},
		{"keywords.min_chars", c.Keywords.MinChars, c.Keywords.MinChars >= 0},
		{"keywords.threshold", c.Keywords.Threshold, inUnit(c.Keywords.Threshold)},
		{"keywords.top_n", c.Keywords.TopN, c.Keywords.TopN >= 0},
		{"collaborators.pool_size", c.Collaborators.PoolSize, c.Collaborators.PoolSize > 0},
		{"collaborators.retries", c.Collaborators.Retries, c.Collaborators.Retries >= 0},
		{"collaborators.retry_delay", c.Collaborators.RetryDelay, c.Collaborators.RetryDelay >= 0},
		{"collaborators.timeout", c.Collaborators.Timeout, c.Collaborators.Timeout >= 0},
	}
	for _, chk := range checks {
		if !chk.ok {
			return cerrors.NewConfigInvalidError(chk.field, chk.value)
		}
	}

	policies := []struct{ field, name string }{
		{"sections.policy", c.Sections.Policy},
		{"fine.policy", c.Fine.Policy},
		{"illustrations.policy", c.Illustrations.Policy},
	}
	for _, p := range policies {
		if _, err := analyzer.ParsePolicy(p.name); err != nil {
			return cerrors.NewConfigInvalidError(p.field, p.name)
		}
	}
	if _, err := ocr.ParseLevel(c.OCR.Level); err != nil {
		return cerrors.NewConfigInvalidError("ocr.level", c.OCR.Level)
	}
	return nil
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }
