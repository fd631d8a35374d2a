package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/mentu/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workspace over HTTP",
		Long: `Serve the JSON API, websocket subscriptions and Prometheus metrics.

Requests authenticate with "Authorization: Bearer <key>" using a key from
"mentu api-key create". /health and /metrics are open.

Examples:
  mentu serve
  mentu serve --listen :8080
  MENTU_SERVER_LISTEN=0.0.0.0:3000 mentu serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ws, err := rootOpts.open(cmd)
			if err != nil {
				return f.Fail(err)
			}
			addr := listen
			if addr == "" {
				addr = ws.Config.Server.Listen
			}

			level := slog.LevelInfo
			if rootOpts.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(ws, server.WithLogger(logger), server.WithVersion(Version))
			if err := srv.Run(ctx, addr); err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "server failed", err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: server.listen from config)")
	return cmd
}
