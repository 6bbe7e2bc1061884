package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixml/openflights"
	"github.com/helixml/openflights/infrastructure/api"
	"github.com/helixml/openflights/internal/config"
	"github.com/helixml/openflights/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile  string
		host     string
		port     int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DATA_DIR                     Data directory (default: ~/.openflights)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/openflights.db)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  CORS_ORIGINS                 Comma-separated allowed origins (default: *)

  EMBEDDING_PROVIDER           gemini or openai (default: gemini)
  GOOGLE_API_KEY               Gemini API key; without it only query_vec works
  GEMINI_EMBED_MODEL           Default model (default: models/text-embedding-004)
  GEMINI_MULTI_EMBED_MODEL     Model for non-ASCII text (default: same as above)
  GEMINI_EMBED_DIM             Vector dimension (default: 768)

  EMBEDDING_ENDPOINT_*         OpenAI-compatible embedding service
    BASE_URL                   Base URL (e.g., https://api.openai.com/v1)
    API_KEY                    API key for authentication
    MODEL                      Model identifier (default: text-embedding-3-small)
    MULTI_MODEL                Model for non-ASCII text
    TIMEOUT                    Request timeout in seconds (default: 60)

  CANDIDATE_POOL               Nearest routes considered before filters (default: 2000)
  SEARCH_DEFAULT_LIMIT         Default k (default: 25)
  QUERY_CACHE_SIZE             Cached query vectors (default: 1024)
  REDIS_ADDR                   Share cached query vectors through Redis
  INDEX_INTERVAL_SECONDS       Embed new rows in the background (default: 0, off)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port, interval)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")
	cmd.Flags().DurationVar(&interval, "index-interval", 0, "Background indexing period, e.g. 10m (default: INDEX_INTERVAL_SECONDS)")

	return cmd
}

func runServe(envFile, host string, port int, interval time.Duration) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Flags take precedence over env vars.
	cfg = applyServeOverrides(cfg, host, port, interval)

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()
	logger.SetDefault()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting openflights", attrs...)

	opts := append(clientOptions(cfg, slogger), openflights.WithIndexInterval(cfg.IndexInterval()))
	client, err := openflights.New(opts...)
	if err != nil {
		return fmt.Errorf("create openflights client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close openflights client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client,
		api.WithVersion(version),
		api.WithCORSOrigins(cfg.CORSOrigins()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := apiServer.ListenAndServe(cfg.Addr()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int, interval time.Duration) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}
	if interval > 0 {
		opts = append(opts, config.WithIndexInterval(interval))
	}

	return cfg.Apply(opts...)
}
