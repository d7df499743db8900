package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/cyoaseg/internal/config"
	"github.com/ivlev/cyoaseg/internal/engine"
	"github.com/ivlev/cyoaseg/internal/keywords"
	"github.com/ivlev/cyoaseg/internal/logging"
	"github.com/ivlev/cyoaseg/internal/ocr"
	"github.com/ivlev/cyoaseg/internal/report"
	"github.com/ivlev/cyoaseg/internal/source"
	"github.com/ivlev/cyoaseg/internal/system"
	"github.com/ivlev/cyoaseg/internal/tagger"
)

var runOpts struct {
	output          string
	name            string
	workers         int
	dpi             int
	detector        string
	ocrBackend      string
	taggerBackend   string
	taggerBinary    string
	keywordsBackend string
	keywordsBinary  string
	timestamped     bool
	showStats       bool
}

var runCmd = &cobra.Command{
	Use:   "run <input>",
	Short: "Process a page image, a directory of pages or a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runProject,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.output, "output", "o", "", "Output root directory")
	f.StringVar(&runOpts.name, "name", "", "CYOA name (default: input base name)")
	f.IntVarP(&runOpts.workers, "workers", "w", 0, "Parallel pages (0: from CPU and memory)")
	f.IntVar(&runOpts.dpi, "dpi", 0, "PDF render DPI")
	f.StringVar(&runOpts.detector, "detector", "", "Illustration detector: diversity, contrast")
	f.StringVar(&runOpts.ocrBackend, "ocr", "", "OCR backend: tesseract, gosseract, none")
	f.StringVar(&runOpts.taggerBackend, "tagger", "", "Tagger backend: command, none")
	f.StringVar(&runOpts.taggerBinary, "tagger-cmd", "", "Tagger program for the command backend")
	f.StringVar(&runOpts.keywordsBackend, "keywords", "", "Keyword backend: command, none")
	f.StringVar(&runOpts.keywordsBinary, "keywords-cmd", "", "Keyword program for the command backend")
	f.BoolVar(&runOpts.timestamped, "timestamped", false, "Append a timestamp to the output directory")
	f.BoolVar(&runOpts.showStats, "stats", false, "Print a performance report")
}

func runProject(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd, func(c *config.Config) {
		c.InputPath = args[0]
		f := cmd.Flags()
		if f.Changed("output") {
			c.OutputDir = runOpts.output
		}
		if f.Changed("workers") {
			c.Workers = runOpts.workers
		}
		if f.Changed("dpi") {
			c.Source.DPI = runOpts.dpi
		}
		if f.Changed("detector") {
			c.Illustrations.Detector = runOpts.detector
		}
		if f.Changed("ocr") {
			c.OCR.Backend = runOpts.ocrBackend
		}
		if f.Changed("tagger") {
			c.Tagger.Backend = runOpts.taggerBackend
		}
		if f.Changed("tagger-cmd") {
			c.Tagger.Binary = runOpts.taggerBinary
		}
		if f.Changed("keywords") {
			c.Keywords.Backend = runOpts.keywordsBackend
		}
		if f.Changed("keywords-cmd") {
			c.Keywords.Binary = runOpts.keywordsBinary
		}
	})
	if err != nil {
		return err
	}

	src, err := source.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	collab, err := buildCollaborators(cfg)
	if err != nil {
		return err
	}

	name := runOpts.name
	if name == "" {
		base := filepath.Base(strings.TrimRight(cfg.InputPath, string(filepath.Separator)))
		name = strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), " ", "_")
	}

	fmt.Println("--- [CYOASEG] ---")
	fmt.Printf("[*] Source: %s | Pages: %d\n", cfg.InputPath, src.PageCount())
	fmt.Printf("[*] %s\n", system.Probe())
	fmt.Printf("[*] OCR: %s | Tagger: %s | Keywords: %s\n", cfg.OCR.Backend, cfg.Tagger.Backend, cfg.Keywords.Backend)
	fmt.Println("-----------------")

	project, err := engine.NewProject(cfg, src, name, collab, logging.Component(log, "engine"))
	if err != nil {
		return err
	}
	project.Progress = func(done, total int, page string) {
		fmt.Printf("[>] Ready: %d/%d %s\n", done, total, page)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	result, err := project.Run(ctx)
	if err != nil {
		return fmt.Errorf("project failed: %w", err)
	}

	outDir := filepath.Join(cfg.OutputDir, name)
	if runOpts.timestamped {
		outDir = report.GenerateOutputDir(cfg.OutputDir, name)
	}
	if err := report.WriteAll(result, outDir); err != nil {
		return err
	}

	if runOpts.showStats {
		elapsed := time.Since(start)
		fmt.Printf("--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Pages/s: %.2f\n"+
			"Failures: %d\n"+
			"----------------------------\n",
			cfg.BuildVersion, elapsed.Seconds(), float64(result.Summary.Pages)/elapsed.Seconds(), result.Summary.Failures)
	}

	fmt.Printf("[+++] Done! Results: %s\n", outDir)
	return nil
}

func buildCollaborators(cfg config.Config) (engine.Collaborators, error) {
	rec, err := ocr.NewRecognizer(cfg.OCR.Backend, cfg.OCR.Binary)
	if err != nil {
		return engine.Collaborators{}, err
	}
	cls, err := tagger.NewClassifier(cfg.Tagger.Backend, cfg.Tagger.Binary, cfg.Tagger.Args)
	if err != nil {
		return engine.Collaborators{}, err
	}
	ranker, err := keywords.NewRanker(cfg.Keywords.Backend, cfg.Keywords.Binary, cfg.Keywords.Args)
	if err != nil {
		return engine.Collaborators{}, err
	}
	return engine.Collaborators{
		OCR:        rec,
		Classifier: cls,
		Keywords:   keywords.NewExtractor(ranker, cfg.Keywords.MinChars, cfg.Keywords.Threshold, cfg.Keywords.TopN),
	}, nil
}
