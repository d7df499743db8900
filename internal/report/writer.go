package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Output file names inside a CYOA directory.
const (
	ResultFile = "result.yaml"
	TextFile   = "text.txt"
	TagsFile   = "dd.txt"
	InfoFile   = "info.txt"
)

// WriteResult writes a result to a YAML file
func WriteResult(result *Result, path string) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadResult reads a result from a YAML file
func ReadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result Result
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// WriteAll writes every output of result into dir, creating it.
func WriteAll(result *Result, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	writers := []struct {
		name  string
		write func(*Result, string) error
	}{
		{ResultFile, WriteResult},
		{TextFile, WriteText},
		{TagsFile, WriteTags},
		{InfoFile, WriteInfo},
	}
	for _, w := range writers {
		if err := w.write(result, filepath.Join(dir, w.name)); err != nil {
			return fmt.Errorf("write %s: %w", w.name, err)
		}
	}
	return nil
}

func WriteText(result *Result, path string) error {
	return os.WriteFile(path, []byte(result.Text()), 0644)
}

// WriteTags writes "tag<TAB>average" lines, special tags first.
func WriteTags(result *Result, path string) error {
	return writeLines(path, func(w *bufio.Writer) {
		for _, ts := range result.Summary.Special {
			fmt.Fprintf(w, "%s\t%v\n", ts.Tag, ts.Score)
		}
		for _, ts := range result.Summary.Tags {
			if isSpecial(result, ts.Tag) {
				continue
			}
			fmt.Fprintf(w, "%s\t%v\n", ts.Tag, ts.Score)
		}
	})
}

func WriteInfo(result *Result, path string) error {
	s := result.Summary
	return writeLines(path, func(w *bufio.Writer) {
		fmt.Fprintf(w, "Pages: %d\n", s.Pages)
		fmt.Fprintf(w, "Pixels: %d\n", s.Pixels)
		fmt.Fprintf(w, "Coverage: %.4f\n", s.Coverage)
		fmt.Fprintf(w, "Threshold: %v\n", s.Threshold)
		fmt.Fprintf(w, "Timestamp: %d\n", result.CreatedAt.Unix())
	})
}

func isSpecial(result *Result, tag string) bool {
	for _, ts := range result.Summary.Special {
		if ts.Tag == tag {
			return true
		}
	}
	return false
}

func writeLines(path string, fill func(*bufio.Writer)) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fill(w)
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
