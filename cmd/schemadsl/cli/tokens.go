package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemadsl"
	"github.com/tordrt/schemadsl/internal/lexer"
)

func newTokensCmd(a *app) *cobra.Command {
	var skipTrivia bool

	cmd := &cobra.Command{
		Use:   "tokens FILE",
		Short: "Print the token stream of a schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			tokens, errs := schemadsl.Tokenize(source)
			printed := tokens
			if skipTrivia {
				printed = lexer.Filter(tokens)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, tok := range printed {
				_, _ = fmt.Fprintf(tw, "%d:%d\t%s\t%q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Raw)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			printDiagnostics(cmd.ErrOrStderr(), args[0], errs)
			if len(errs) > 0 {
				return fmt.Errorf("%d lexical errors", len(errs))
			}
			a.logger.Debug("tokenized", "file", args[0], "tokens", len(tokens))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipTrivia, "skip-trivia", false, "omit newline and comment tokens")
	return cmd
}
