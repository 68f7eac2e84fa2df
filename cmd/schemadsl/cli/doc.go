package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemadsl"
	"github.com/tordrt/schemadsl/internal/formatter"
)

func newDocCmd(a *app) *cobra.Command {
	var (
		format     string
		outputFile string
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:   "doc FILE",
		Short: "Generate documentation from a schema file",
		Long: `Generate markdown or plain text documentation from a schema file.

With --output-dir one file per table is written next to an overview file.`,
		Example: `  schemadsl doc schema.dbml
  schemadsl doc schema.dbml -f text -o schema.txt
  schemadsl doc schema.dbml -d ./docs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatter.FormatMarkdown && format != formatter.FormatText {
				return fmt.Errorf("invalid format: %s (must be 'markdown' or 'text')", format)
			}
			if outputDir != "" && outputFile != "" {
				return errOutputConflict
			}

			result, err := a.parseSchema(cmd, args[0], nil)
			if err != nil {
				return err
			}

			w, closeOutput, err := createOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), outputFile)
			if err != nil {
				return err
			}
			defer closeOutput()

			if err := schemadsl.FormatSchema(result.Schema, &schemadsl.OutputOptions{Writer: w, OutputDir: outputDir, Format: format}); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", formatter.FormatMarkdown, "output format: markdown or text")
	f.StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	f.StringVarP(&outputDir, "output-dir", "d", "", "write one file per table into this directory")
	addParseFlags(cmd)
	return cmd
}
