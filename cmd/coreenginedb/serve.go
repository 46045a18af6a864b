package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raakeshmj/coreenginedb/internal/config"
	"github.com/raakeshmj/coreenginedb/internal/events"
	"github.com/raakeshmj/coreenginedb/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration.
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
		slog.SetDefault(logger)

		ctx := context.Background()
		blobs, closeBlobs, err := server.OpenBlobStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeBlobs()

		// Create event publisher.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = events.NoopPublisher{}
			logger.Info("events disabled (NATS_URL not set)")
		}
		defer publisher.Close()

		for _, msg := range startupWarnings(cfg) {
			logger.Warn(msg)
		}

		return server.New(cfg, blobs, publisher, logger).Start()
	},
}

// startupWarnings names features the configuration leaves switched off.
func startupWarnings(cfg *config.Config) []string {
	var out []string
	if cfg.AdminToken == "" {
		out = append(out, "ADMIN_TOKEN not set; session logins and /admin/superadmin are disabled")
	}
	if cfg.StripeSecret == "" {
		out = append(out, "STRIPE_SECRET not set; /wallet/topup answers stripe_not_configured")
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
