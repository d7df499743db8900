package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/cyoaseg/internal/analyzer"
	"github.com/ivlev/cyoaseg/internal/engine"
	"github.com/ivlev/cyoaseg/internal/geometry"
	"github.com/ivlev/cyoaseg/internal/logging"
	"github.com/ivlev/cyoaseg/internal/source"
)

var chunksOutput string

// chunkLayout is what the chunks command prints.
type chunkLayout struct {
	Page          string                 `yaml:"page"`
	Width         int                    `yaml:"width"`
	Height        int                    `yaml:"height"`
	Sections      []geometry.BoundingBox `yaml:"sections"`
	Fine          []geometry.BoundingBox `yaml:"fine"`
	Illustrations []analyzer.Region      `yaml:"illustrations"`
}

var chunksCmd = &cobra.Command{
	Use:   "chunks <image>",
	Short: "Print section, fine chunk and illustration boxes of one page",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

func init() {
	chunksCmd.Flags().StringVarP(&chunksOutput, "output", "o", "", "Write YAML here instead of stdout")
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	src, err := source.Open(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	img, err := src.RenderPage(0, cfg.Source.DPI)
	if err != nil {
		return fmt.Errorf("render %s: %w", src.PageName(0), err)
	}
	norm := source.Normalize(img, cfg.Source.MaxWidth, cfg.Source.MaxWideWidth)

	pipeline, err := engine.NewPipeline(cfg, engine.Collaborators{}, engine.NewPool(1, 0, 0, 0), logging.Component(log, "chunks"))
	if err != nil {
		return err
	}
	layout := pipeline.Layout(norm, nil)
	regions, err := pipeline.Illustrations(layout.Sections, layout.Exclusions)
	if err != nil {
		return err
	}

	out := chunkLayout{
		Page:          src.PageName(0),
		Width:         layout.Page.Width,
		Height:        layout.Page.Height,
		Illustrations: regions,
	}
	for _, c := range layout.Sections {
		out.Sections = append(out.Sections, c.Box())
	}
	for _, c := range layout.Fine {
		out.Fine = append(out.Fine, c.Box())
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	if chunksOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(chunksOutput, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("[+++] Layout saved: %s\n", chunksOutput)
	return nil
}
