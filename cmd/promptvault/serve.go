package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/home"
	"github.com/promptvault/promptvault/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the promptvault server",
	Long: `Start the promptvault HTTP server.

The server owns the catalog database (~/.promptvault/vault.db),
runs migrations on startup, and closes the database on shutdown
(Ctrl+C or SIGTERM).

Examples:
  promptvault serve                # Start on default port 8080
  promptvault serve --port 3000    # Start on custom port
  promptvault serve --host 0.0.0.0 # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		logger := newLogger(mgr.Get().Log)

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Blocks until shutdown.
		return srv.Start(ctx)
	},
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config, 8080)")

	rootCmd.AddCommand(serveCmd)
}
