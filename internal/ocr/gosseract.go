//go:build ocr

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract links libtesseract through cgo. A client is not safe for
// concurrent use, so calls are serialized.
type Gosseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func NewGosseract() (Recognizer, error) {
	return &Gosseract{client: gosseract.NewClient()}, nil
}

func (g *Gosseract) Recognize(ctx context.Context, img image.Image, opts Options) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if opts.Language != "" {
		if err := g.client.SetLanguage(opts.Language); err != nil {
			return nil, fmt.Errorf("set language: %w", err)
		}
	}
	if opts.PageSegMode > 0 {
		if err := g.client.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode)); err != nil {
			return nil, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if err := g.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	hocr, err := g.client.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	return ParseHOCR([]byte(hocr))
}

func (g *Gosseract) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Close()
}
