package commands

import (
	"context"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/haivivi/emailbattle/pkg/battleserver"
)

var serveFlags struct {
	addr           string
	evaluator      string
	respondent     string
	allowedOrigins []string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve battles over HTTP and websocket",
	Long: `Serve battles over HTTP.

Routes:
  GET  /healthz          liveness
  GET  /graph            the battle graph
  POST /battles          run a battle, respond with the result
  GET  /battles/stream   websocket; one event per step, then the result

Every request runs a fresh battle between the configured models.

Examples:
  emailbattle serve --evaluator judge --respondent clerk
  emailbattle serve --addr 127.0.0.1:9000 --allowed-origins http://localhost:5173`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fs := cmd.Flags()
		override(fs, "addr", &cfg.Addr, serveFlags.addr)
		override(fs, "evaluator", &cfg.Evaluator, serveFlags.evaluator)
		override(fs, "respondent", &cfg.Respondent, serveFlags.respondent)
		override(fs, "allowed-origins", &cfg.AllowedOrigins, serveFlags.allowedOrigins)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		shutdown, err := setupTelemetry(ctx, cfg)
		if err != nil {
			return err
		}
		defer flushTelemetry(shutdown)

		a, err := newArena(cfg)
		if err != nil {
			return err
		}
		srv, err := battleserver.New(battleserver.Config{
			Starter:        a,
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         slog.Default(),
		})
		if err != nil {
			return err
		}
		l, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return err
		}
		slog.Info("listening", "addr", l.Addr().String(), "evaluator", cfg.Evaluator, "respondent", cfg.Respondent)
		return srv.Serve(ctx, l)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", ":8080", "listen address (env EMAILBATTLE_ADDR)")
	f.StringVar(&serveFlags.evaluator, "evaluator", "", "evaluator model name (env EMAILBATTLE_EVALUATOR)")
	f.StringVar(&serveFlags.respondent, "respondent", "", "respondent model name (env EMAILBATTLE_RESPONDENT)")
	f.StringSliceVar(&serveFlags.allowedOrigins, "allowed-origins", nil, "CORS origins (env EMAILBATTLE_ALLOWED_ORIGINS)")

	rootCmd.AddCommand(serveCmd)
}
