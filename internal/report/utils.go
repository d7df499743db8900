package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ivlev/cyoaseg/internal/geometry"
)

// GenerateOutputDir creates a timestamped output directory name for a CYOA.
func GenerateOutputDir(root, name string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(root, fmt.Sprintf("%s_%s", name, timestamp))
}

// FindLatestResult finds the most recent result.yaml below root.
func FindLatestResult(root string) (string, error) {
	var results []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == ResultFile {
			results = append(results, p)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to read output directory: %w", err)
	}

	if len(results) == 0 {
		return "", fmt.Errorf("no %s found in %s", ResultFile, root)
	}

	mod := make(map[string]time.Time, len(results))
	for _, r := range results {
		if info, err := os.Stat(r); err == nil {
			mod[r] = info.ModTime()
		}
	}

	// Newest first
	sort.Slice(results, func(i, j int) bool {
		return mod[results[i]].After(mod[results[j]])
	})

	return results[0], nil
}

// SortReadingOrder orders boxes top-to-bottom, then left-to-right among boxes
// whose tops are within rowTolerance pixels.
func SortReadingOrder(boxes []geometry.BoundingBox, rowTolerance int) []geometry.BoundingBox {
	sorted := make([]geometry.BoundingBox, len(boxes))
	copy(sorted, boxes)

	sort.SliceStable(sorted, func(i, j int) bool {
		yDiff := sorted[i].YMin - sorted[j].YMin
		if abs(yDiff) > rowTolerance {
			return sorted[i].YMin < sorted[j].YMin
		}
		return sorted[i].XMin < sorted[j].XMin
	})

	return sorted
}

// PrintSummary writes a human summary of result.
func PrintSummary(w io.Writer, result *Result) {
	s := result.Summary
	fmt.Fprintf(w, "[*] %s (run %s, %s)\n", result.Name, result.RunID, result.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "    Pages: %d, Pixels: %d, Coverage: %.1f%%, Failures: %d\n",
		s.Pages, s.Pixels, s.Coverage*100, s.Failures)

	for _, p := range result.Pages {
		fmt.Fprintf(w, "    [>] %s: %d sections, %d chunks, %d illustrations\n",
			p.Name, len(p.Sections), len(p.Chunks), len(p.Illustrations))
	}

	if len(s.Special) > 0 {
		parts := make([]string, len(s.Special))
		for i, ts := range s.Special {
			parts[i] = fmt.Sprintf("%s:%.3f", ts.Tag, ts.Score)
		}
		fmt.Fprintf(w, "    Special: %s\n", strings.Join(parts, " "))
	}
	if len(s.Keywords) > 0 {
		words := make([]string, len(s.Keywords))
		for i, k := range s.Keywords {
			words[i] = k.Word
		}
		fmt.Fprintf(w, "    Keywords: %s\n", strings.Join(words, ", "))
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
