package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tordrt/schemadsl"
)

// Output encodings accepted by parse.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type fileResult struct {
	File   string                 `json:"file" yaml:"file"`
	Result *schemadsl.ParseResult `json:"result" yaml:"result"`
}

func newParseCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Parse schema files and report diagnostics",
		Long: `Parse one or more schema files. Use - to read standard input.

The text output prints a summary line per file followed by its diagnostics.
The json and yaml outputs print the full parse result; with several files
they print a list of {file, result} entries.

The command fails if any file has errors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case outputText, outputJSON, outputYAML:
			default:
				return fmt.Errorf("invalid output: %s (must be 'text', 'json' or 'yaml')", output)
			}

			results := make([]fileResult, 0, len(args))
			failed := 0
			for _, path := range args {
				result, err := a.parseSource(cmd.InOrStdin(), path, nil)
				if err != nil {
					return err
				}
				if !result.Success {
					failed++
				}
				results = append(results, fileResult{File: path, Result: result})
			}

			if err := writeResults(cmd.OutOrStdout(), output, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed to parse", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output: text, json or yaml")
	addParseFlags(cmd)
	return cmd
}

func writeResults(w io.Writer, output string, results []fileResult) error {
	var v any = results
	if len(results) == 1 {
		v = results[0].Result
	}

	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, r := range results {
		_, _ = fmt.Fprintln(w, summary(r))
		printDiagnostics(w, r.File, r.Result.Errors, r.Result.Warnings)
	}
	return nil
}

func summary(r fileResult) string {
	res := r.Result
	status := "ok"
	if !res.Success {
		status = "failed"
	}
	line := fmt.Sprintf("%s: %s, %d errors, %d warnings", r.File, status, len(res.Errors), len(res.Warnings))
	if res.Schema != nil {
		line += fmt.Sprintf(", %d tables, %d refs, %d enums",
			len(res.Schema.Tables), len(res.Schema.Relationships), len(res.Schema.Enums))
	}
	return line + fmt.Sprintf(" (%s)", res.Metadata.ParseTime)
}
