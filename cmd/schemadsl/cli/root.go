// Package cli implements the schemadsl command tree.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tordrt/schemadsl"
	"github.com/tordrt/schemadsl/internal/config"
	"github.com/tordrt/schemadsl/internal/logging"
)

// flagKeys maps command-line flags onto config keys. A flag that was set on
// the command line wins over the environment and the config file.
var flagKeys = map[string]string{
	"log-level":         "log.level",
	"log-format":        "log.format",
	"strict":            "parse.strict",
	"ignore-errors":     "parse.ignore_errors",
	"preserve-comments": "parse.preserve_comments",
	"max-errors":        "parse.max_errors",
	"timeout":           "parse.timeout",
	"host":              "server.host",
	"port":              "server.port",
}

// app carries the state shared by every subcommand once configuration is
// loaded.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// Execute creates the root command tree and runs it until it returns or the
// process receives SIGINT or SIGTERM.
func Execute(version, commit, date string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(version, commit, date).ExecuteContext(ctx)
}

func newRootCmd(version, commit, date string) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "schemadsl",
		Short: "Parse, format and generate database schema descriptions",
		Long: `schemadsl reads DBML-style schema description files, reports every problem
it finds with a position and a stable code, and writes the schema back out as
formatted schema text, markdown or plain text documentation.

It can also read the catalog of a live PostgreSQL, MySQL, SQLite or SQL Server
database and emit the same schema text, and serve the parser over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./schemadsl.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: text or json")

	cmd.AddCommand(newParseCmd(a))
	cmd.AddCommand(newTokensCmd(a))
	cmd.AddCommand(newFmtCmd(a))
	cmd.AddCommand(newDocCmd(a))
	cmd.AddCommand(newIntrospectCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

// load reads the config for the command about to run and builds its logger.
func (a *app) load(cmd *cobra.Command) error {
	v := viper.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(v, a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	return nil
}

// parseOptions converts the loaded parse settings.
func (a *app) parseOptions() *schemadsl.ParseOptions {
	p := a.cfg.Parse
	return &schemadsl.ParseOptions{
		Strict:           p.Strict,
		IgnoreErrors:     p.IgnoreErrors,
		PreserveComments: p.PreserveComments,
		MaxErrors:        p.MaxErrors,
		Timeout:          p.Timeout,
	}
}

// addParseFlags registers the flags that override the parse section.
func addParseFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("strict", false, "report unknown settings as errors instead of warnings")
	f.Bool("ignore-errors", false, "return the recovered schema even when there are errors")
	f.Bool("preserve-comments", false, "include comments in the result")
	f.Int("max-errors", 0, "stop collecting diagnostics after this many")
	f.Duration("timeout", 0, "abort parsing after this long")
}
