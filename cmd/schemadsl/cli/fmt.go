package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemadsl"
	"github.com/tordrt/schemadsl/internal/formatter"
)

func newFmtCmd(a *app) *cobra.Command {
	var write, force bool

	cmd := &cobra.Command{
		Use:   "fmt FILE",
		Short: "Rewrite a schema file in canonical form",
		Long: `Parse a schema file and print it back in canonical schema text.

With -w the file is rewritten in place. A file with parse errors is
left untouched unless --ignore-errors is given. Comments are not carried into
the output, so -w refuses a file that has any unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if write && path == stdinName {
				return fmt.Errorf("cannot use -w with standard input")
			}

			opts := a.parseOptions()
			opts.PreserveComments = true
			result, err := a.parseSchema(cmd, path, opts)
			if err != nil {
				return err
			}
			if write && !force && len(result.Comments) > 0 {
				c := result.Comments[0]
				return fmt.Errorf("%s:%d:%d: file has %d comments that formatting would remove (use --force to rewrite anyway)",
					path, c.Pos.Line, c.Pos.Column, len(result.Comments))
			}
			s := result.Schema

			var buf bytes.Buffer
			if err := schemadsl.FormatSchema(s, &schemadsl.OutputOptions{Writer: &buf, Format: formatter.FormatDBML}); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}

			if !write {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			a.logger.Info("formatted", "file", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	cmd.Flags().BoolVar(&force, "force", false, "with -w, rewrite even when comments would be lost")
	addParseFlags(cmd)
	return cmd
}

// parseSchema parses path, printing diagnostics to stderr. It fails when
// parsing produced no schema.
func (a *app) parseSchema(cmd *cobra.Command, path string, opts *schemadsl.ParseOptions) (*schemadsl.ParseResult, error) {
	result, err := a.parseSource(cmd.InOrStdin(), path, opts)
	if err != nil {
		return nil, err
	}
	printDiagnostics(cmd.ErrOrStderr(), path, result.Errors, result.Warnings)
	if result.Schema == nil {
		return nil, fmt.Errorf("%s: %d errors, %d warnings", path, len(result.Errors), len(result.Warnings))
	}
	return result, nil
}
