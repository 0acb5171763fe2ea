package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smogalia/list-gift/internal/app"
	"github.com/smogalia/list-gift/internal/config"
	pkgconfig "github.com/smogalia/list-gift/pkg/config"
	"github.com/smogalia/list-gift/pkg/logger"
)

// Build information injected via ldflags at build time.
var version = "dev"

var envPrefix string

var rootCmd = &cobra.Command{
	Use:           "giftregistry",
	Short:         "Gift registry API server",
	Long:          `Serves wishlists, anonymous reservations and live list updates over HTTP.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", "",
		"prefix for every environment variable, e.g. GIFT_")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	var opts []pkgconfig.Option
	if envPrefix != "" {
		opts = append(opts, pkgconfig.WithPrefix(envPrefix))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New("giftregistry", cfg.LogLevel), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("starting gift registry",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("sync_transport", cfg.SyncTransport),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize application", slog.String("error", err.Error()))
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		return err
	}
	log.Info("gift registry stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	return app.Migrate(ctx, cfg, log)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
