package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/getwowai/showcase/internal/platform/config"
	"github.com/getwowai/showcase/internal/platform/observability"
	"github.com/getwowai/showcase/internal/platform/secrets"
)

const flushTimeout = 2 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootLogger, err := observability.NewLogger(firstNonEmpty(logLevel, os.Getenv("LOG_LEVEL")), false)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}

	cfg, err := loadConfig(ctx, bootLogger)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(firstNonEmpty(logLevel, cfg.LogLevel), cfg.Site.Dev)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.Named("web")

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	serveErr := make(chan error, 1)
	go func() {
		serverLogger.Info("showcase web listening",
			zap.String("environment", cfg.Site.Environment),
			zap.Bool("dev", cfg.Site.Dev),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = app.Close(flushTimeout)
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received; draining requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := app.Close(flushTimeout); err != nil {
		logger.Warn("flush on shutdown incomplete", zap.Error(err))
	}
	return nil
}

// loadConfig reads configuration, dialing Secret Manager only when a value
// references it.
func loadConfig(ctx context.Context, logger *zap.Logger) (config.Config, error) {
	opts := []config.Option{config.WithEnvFile(envFile)}

	hasRefs, err := config.HasSecretReferences(opts...)
	if err != nil {
		return config.Config{}, fmt.Errorf("read environment: %w", err)
	}
	if hasRefs {
		fetcher, err := secrets.NewFetcher(ctx,
			secrets.WithLogger(logger.Named("secrets")),
			secrets.WithProject(firstNonEmpty(os.Getenv("SHOWCASE_WEB_SECRETS_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT"))),
			secrets.WithFallbackFile(".secrets.local"),
		)
		if err != nil {
			return config.Config{}, fmt.Errorf("initialise secret fetcher: %w", err)
		}
		defer func() {
			if err := fetcher.Close(); err != nil {
				logger.Warn("secret fetcher close error", zap.Error(err))
			}
		}()
		opts = append(opts, config.WithSecretResolver(fetcher))
	}

	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Error("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		return config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
