package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tordrt/schemadsl"
	"github.com/tordrt/schemadsl/internal/diagnostic"
)

// stdinName is the file argument that reads standard input.
const stdinName = "-"

// readSource returns the contents of path, or of in when path is "-".
func readSource(in io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == stdinName {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// parseSource reads and parses one input file with opts, or with the
// configured options when opts is nil.
func (a *app) parseSource(in io.Reader, path string, opts *schemadsl.ParseOptions) (*schemadsl.ParseResult, error) {
	source, err := readSource(in, path)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = a.parseOptions()
	}
	result := schemadsl.Parse(source, opts)
	a.logger.Debug("parsed",
		"file", path,
		"success", result.Success,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"tokens", result.Metadata.TokenCount,
		"duration", result.Metadata.ParseTime)
	return result, nil
}

// printDiagnostics writes one line per diagnostic prefixed with the file.
func printDiagnostics(w io.Writer, path string, diags ...[]*diagnostic.ParseError) {
	for _, list := range diags {
		for _, d := range list {
			_, _ = fmt.Fprintf(w, "%s:%d:%d: %s: %s [%s]\n",
				path, d.Position.Line, d.Position.Column, d.Severity, d.Message, d.Code)
		}
	}
}

// createOutput opens path for writing, or returns w when path is empty. The
// returned close function reports failures as a warning.
func createOutput(w, errW io.Writer, path string) (io.Writer, func(), error) {
	if path == "" {
		return w, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			_, _ = fmt.Fprintf(errW, "warning: failed to close output file: %v\n", err)
		}
	}, nil
}

var errOutputConflict = errors.New("cannot use both --output-dir and --output flags")
