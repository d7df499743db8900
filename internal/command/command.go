// Package command runs external collaborator processes that take an image
// or a document on stdin and answer on stdout.
package command

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strings"
)

// Runner executes one external binary.
type Runner interface {
	Run(ctx context.Context, input func(io.Writer) error, args ...string) ([]byte, error)
}

// Exec runs Binary with the given arguments through os/exec.
type Exec struct {
	Binary string
	// Args are prepended to every call.
	Args []string
}

func (e *Exec) Run(ctx context.Context, input func(io.Writer) error, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.Binary, append(append([]string{}, e.Args...), args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s start error: %w", e.Binary, err)
	}

	if input != nil {
		if err := input(stdin); err != nil {
			stdin.Close()
			cmd.Wait()
			return nil, fmt.Errorf("write stdin error: %w", err)
		}
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%s wait error: %w: %s", e.Binary, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// PNG returns an input writer encoding img as PNG.
func PNG(img image.Image) func(io.Writer) error {
	return func(w io.Writer) error {
		return png.Encode(w, img)
	}
}

// Bytes returns an input writer copying data verbatim.
func Bytes(data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}
}
