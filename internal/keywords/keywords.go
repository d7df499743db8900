// Package keywords ranks the words of a CYOA's text through an external
// keyword extractor.
package keywords

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ivlev/cyoaseg/internal/command"
)

// NotAvailable stands in for the keywords of a text too short to rank.
const NotAvailable = "n/a"

type Keyword struct {
	Word  string  `yaml:"word"`
	Score float64 `yaml:"score"`
}

// Ranker is the raw collaborator: text in, scored keywords out.
type Ranker interface {
	Rank(ctx context.Context, text string) ([]Keyword, error)
}

// Extractor applies the length gate, threshold and top-n cut to a ranker.
type Extractor struct {
	ranker    Ranker
	minChars  int
	threshold float64
	topN      int
}

func NewExtractor(r Ranker, minChars int, threshold float64, topN int) *Extractor {
	return &Extractor{ranker: r, minChars: minChars, threshold: threshold, topN: topN}
}

func (e *Extractor) Extract(ctx context.Context, text string) ([]Keyword, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < e.minChars {
		return []Keyword{{Word: NotAvailable}}, nil
	}

	ranked, err := e.ranker.Rank(ctx, text)
	if err != nil {
		return nil, err
	}

	kept := make([]Keyword, 0, len(ranked))
	for _, k := range ranked {
		if k.Score > e.threshold && k.Word != "" {
			kept = append(kept, k)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if e.topN > 0 && len(kept) > e.topN {
		kept = kept[:e.topN]
	}
	return kept, nil
}

// NewRanker creates a backend by name.
func NewRanker(backend, binary string, args []string) (Ranker, error) {
	switch strings.ToLower(backend) {
	case "none", "":
		return Nop{}, nil
	case "command":
		if binary == "" {
			return nil, fmt.Errorf("keywords command backend needs a binary")
		}
		return &Command{runner: &command.Exec{Binary: binary, Args: args}}, nil
	default:
		return nil, fmt.Errorf("unknown keywords backend: %s", backend)
	}
}

type Nop struct{}

func (Nop) Rank(context.Context, string) ([]Keyword, error) { return nil, nil }

// Command sends the text on stdin and reads "keyword<TAB>score" lines.
type Command struct {
	runner command.Runner
}

func NewCommand(r command.Runner) *Command {
	return &Command{runner: r}
}

func (c *Command) Rank(ctx context.Context, text string) ([]Keyword, error) {
	out, err := c.runner.Run(ctx, command.Bytes([]byte(text)))
	if err != nil {
		return nil, err
	}

	var kws []Keyword
	sc := bufio.NewScanner(bytes.NewReader(out))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		word, value, ok := strings.Cut(line, "\t")
		if !ok {
			return nil, fmt.Errorf("line %d: expected keyword<TAB>score", n)
		}
		s, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		kws = append(kws, Keyword{Word: strings.TrimSpace(word), Score: s})
	}
	return kws, sc.Err()
}
