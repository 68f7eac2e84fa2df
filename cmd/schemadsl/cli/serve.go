package cli

import (
	"github.com/spf13/cobra"

	"github.com/tordrt/schemadsl/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parser over HTTP",
		Long: `Start an HTTP server exposing the parser:

  POST /api/v1/parse    parse a source and return the full result
  POST /api/v1/tokens   return the token stream of a source
  POST /api/v1/format   return a source reformatted as dbml, markdown or text
  GET  /healthz         liveness check

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Server
			srv := server.New(server.Config{
				Host:            sc.Host,
				Port:            sc.Port,
				ShutdownTimeout: sc.ShutdownTimeout,
				CORSOrigins:     sc.CORSOrigins,
				MaxBodyBytes:    sc.MaxBodyBytes,
				RateLimit:       sc.RateLimit,
				Parse:           *a.parseOptions(),
			}, a.logger)
			return srv.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("host", "", "address to listen on (default from config: 127.0.0.1)")
	f.Int("port", 0, "port to listen on (default from config: 8080)")
	addParseFlags(cmd)
	return cmd
}
