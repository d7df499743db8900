// Package ocr wraps the text-recognition collaborator: backends that turn a
// chunk image into word detections, and the aggregation that turns words
// into lines, paragraphs, blocks and reading-order text.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ivlev/cyoaseg/internal/geometry"
)

// ErrOCRNotEnabled is returned by backends compiled out of the binary.
var ErrOCRNotEnabled = errors.New("ocr backend not enabled in this build")

// Level is the granularity of a detection. Word is the finest.
type Level int

const (
	LevelWord Level = iota
	LevelLine
	LevelParagraph
	LevelBlock
)

func (l Level) String() string {
	switch l {
	case LevelLine:
		return "line"
	case LevelParagraph:
		return "paragraph"
	case LevelBlock:
		return "block"
	default:
		return "word"
	}
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "word", "":
		return LevelWord, nil
	case "line":
		return LevelLine, nil
	case "paragraph", "par":
		return LevelParagraph, nil
	case "block":
		return LevelBlock, nil
	}
	return LevelWord, fmt.Errorf("unknown ocr level: %s", s)
}

// Detection is one recognized piece of text. Confidence is in [0,1].
// Block, Paragraph and Line number the parents of a word within one
// recognition call.
type Detection struct {
	Text       string
	Confidence float64
	Level      Level
	Left       int
	Top        int
	Width      int
	Height     int

	Block     int
	Paragraph int
	Line      int
}

func (d Detection) Box() geometry.BoundingBox {
	return geometry.FromXYWH(d.Left, d.Top, d.Width, d.Height)
}

func (d *Detection) setBox(b geometry.BoundingBox) {
	d.Left, d.Top, d.Width, d.Height = b.XMin, b.YMin, b.Width(), b.Height()
}

// Options tune one recognition call.
type Options struct {
	Language    string
	PageSegMode int
	// Scale enlarges the image before recognition; small CYOA fonts read
	// better at 2x. Values <= 0 mean 1.
	Scale float64
	// Blur is a Gaussian sigma applied after scaling. 0 disables it.
	Blur float64
}

// Recognizer is the OCR collaborator. Detections are word level and in the
// coordinates of the image it was given, with the origin at the top-left
// corner of that image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, opts Options) ([]Detection, error)
}

// Read preprocesses img, runs rec and maps the detections back into the
// coordinate frame of img (so a chunk view yields page coordinates).
func Read(ctx context.Context, rec Recognizer, img image.Image, opts Options) ([]Detection, error) {
	bounds := img.Bounds()
	prepared, scale := Preprocess(img, opts)

	dets, err := rec.Recognize(ctx, prepared, opts)
	if err != nil {
		return nil, err
	}

	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		box := geometry.BoundingBox{
			XMin: int(math.Floor(float64(d.Left) / scale)),
			XMax: int(math.Ceil(float64(d.Left+d.Width) / scale)),
			YMin: int(math.Floor(float64(d.Top) / scale)),
			YMax: int(math.Ceil(float64(d.Top+d.Height) / scale)),
		}.Clamp(bounds.Dx(), bounds.Dy()).Translate(bounds.Min.X, bounds.Min.Y)
		if !box.Valid() {
			continue
		}
		d.setBox(box)
		out = append(out, d)
	}
	return out, nil
}

// Preprocess converts to grayscale, scales and blurs. It returns the image
// handed to the backend, anchored at the origin, and the scale applied.
func Preprocess(img image.Image, opts Options) (*image.NRGBA, float64) {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	out := imaging.Grayscale(img)
	if scale != 1 {
		w := int(math.Round(float64(out.Bounds().Dx()) * scale))
		h := int(math.Round(float64(out.Bounds().Dy()) * scale))
		if w > 0 && h > 0 {
			out = imaging.Resize(out, w, h, imaging.CatmullRom)
		}
	}
	if opts.Blur > 0 {
		out = imaging.Blur(out, opts.Blur)
	}
	return out, scale
}

// NewRecognizer creates a backend by name.
func NewRecognizer(backend, binary string) (Recognizer, error) {
	switch strings.ToLower(backend) {
	case "tesseract", "":
		return NewTesseractCLI(binary), nil
	case "gosseract":
		return NewGosseract()
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown ocr backend: %s", backend)
	}
}

// Nop recognizes nothing. It lets the pipeline run without an OCR engine.
type Nop struct{}

func (Nop) Recognize(context.Context, image.Image, Options) ([]Detection, error) {
	return nil, nil
}
