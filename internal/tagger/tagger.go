// Package tagger hands illustration crops to an image tag classifier and
// accumulates the scores per page and per CYOA.
package tagger

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ivlev/cyoaseg/internal/command"
)

// DefaultInputSize is the square edge most booru taggers expect.
const DefaultInputSize = 512

// DefaultMinPixels is the normalised pixel total below which a CYOA is too
// small for its special tags to mean anything.
const DefaultMinPixels = 4194304

// Classifier is the tag collaborator. Scores are in [0,1].
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (map[string]float64, error)
}

// Prepare fits img into a size x size square, preserving aspect ratio, and
// centres it on a white canvas.
func Prepare(img image.Image, size int) *image.NRGBA {
	if size <= 0 {
		size = DefaultInputSize
	}
	fitted := imaging.Fit(img, size, size, imaging.Lanczos)
	canvas := imaging.New(size, size, color.White)
	return imaging.PasteCenter(canvas, fitted)
}

// Scores post-processes raw classifier output: scores at or below threshold
// are zeroed and every group gets the max of its member scores.
func Scores(raw map[string]float64, threshold float64, groups map[string][]string) map[string]float64 {
	out := make(map[string]float64, len(raw)+len(groups))
	for tag, s := range raw {
		if s <= threshold {
			s = 0
		}
		out[tag] = s
	}
	for name, members := range groups {
		best := 0.0
		for _, m := range members {
			if s := out[m]; s > best {
				best = s
			}
		}
		out[name] = best
	}
	return out
}

// GroupNames returns group names sorted, the order special tags are
// reported in.
func GroupNames(groups map[string][]string) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClassifier creates a backend by name.
func NewClassifier(backend, binary string, args []string) (Classifier, error) {
	switch strings.ToLower(backend) {
	case "none", "":
		return Nop{}, nil
	case "command":
		if binary == "" {
			return nil, fmt.Errorf("tagger command backend needs a binary")
		}
		return NewCommand(&command.Exec{Binary: binary, Args: args}), nil
	default:
		return nil, fmt.Errorf("unknown tagger backend: %s", backend)
	}
}

// Nop returns no scores.
type Nop struct{}

func (Nop) Classify(context.Context, image.Image) (map[string]float64, error) {
	return nil, nil
}

// Command runs an external classifier: the crop goes in as PNG on stdin,
// and "tag<TAB>score" lines come back on stdout.
type Command struct {
	runner command.Runner
}

func NewCommand(r command.Runner) *Command {
	return &Command{runner: r}
}

func (c *Command) Classify(ctx context.Context, img image.Image) (map[string]float64, error) {
	out, err := c.runner.Run(ctx, command.PNG(img))
	if err != nil {
		return nil, err
	}
	return ParseScores(out)
}

// ParseScores reads "name<TAB>score" lines. Blank lines are skipped.
func ParseScores(data []byte) (map[string]float64, error) {
	scores := make(map[string]float64)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected name<TAB>score", n)
		}
		s, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		scores[strings.TrimSpace(name)] = s
	}
	return scores, sc.Err()
}
