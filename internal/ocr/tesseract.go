package ocr

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/ivlev/cyoaseg/internal/command"
)

// TesseractCLI runs the tesseract binary and reads its hOCR output.
type TesseractCLI struct {
	runner command.Runner
}

func NewTesseractCLI(binary string) *TesseractCLI {
	if binary == "" {
		binary = "tesseract"
	}
	return &TesseractCLI{runner: &command.Exec{Binary: binary}}
}

func (t *TesseractCLI) Recognize(ctx context.Context, img image.Image, opts Options) ([]Detection, error) {
	out, err := t.runner.Run(ctx, command.PNG(img), tesseractArgs(opts)...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	return ParseHOCR(out)
}

func tesseractArgs(opts Options) []string {
	args := []string{"stdin", "stdout"}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}
	if opts.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PageSegMode))
	}
	return append(args, "hocr")
}
