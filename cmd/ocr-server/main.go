package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rockerrishabh/sanskrit-ocr/internal/config"
	"github.com/rockerrishabh/sanskrit-ocr/internal/observability"
	"github.com/rockerrishabh/sanskrit-ocr/internal/session"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ocr-server",
	Short: "Sanskrit OCR service",
	Long: `HTTP service that accepts document uploads, extracts text with
external OCR tooling, splits large PDFs into downloadable chunks, and reports
asynchronous progress to polling clients.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve() error {
	// .env is optional; environment overrides still apply without one.
	_ = godotenv.Load()

	if cfgFile == "" {
		cfgFile = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "sanskrit-ocr",
	})

	if err := os.MkdirAll(cfg.Storage.SplitsDir, 0o755); err != nil {
		return fmt.Errorf("create splits directory: %w", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("sessions", cfg.Sessions.Driver).
		Str("ocr_language", cfg.Tools.OCRLanguage).
		Msg("Starting Sanskrit OCR server")

	router := NewRouter(logger, cfg, store)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// newStore builds the configured progress store driver.
func newStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Sessions.Driver {
	case "redis":
		return session.NewRedisStore(session.RedisStoreConfig{
			Addr:     cfg.Sessions.Redis.Addr,
			Password: cfg.Sessions.Redis.Password,
			DB:       cfg.Sessions.Redis.DB,
			PoolSize: cfg.Sessions.Redis.PoolSize,
			Prefix:   cfg.Sessions.Redis.Prefix,
			TTL:      cfg.Sessions.TTL,
		})
	default:
		return session.NewMemoryStore(), nil
	}
}
