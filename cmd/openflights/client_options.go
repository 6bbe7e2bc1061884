package main

import (
	"log/slog"

	"github.com/helixml/openflights"
	domainservice "github.com/helixml/openflights/domain/service"
	"github.com/helixml/openflights/infrastructure/cache"
	"github.com/helixml/openflights/infrastructure/provider"
	"github.com/helixml/openflights/internal/config"
)

// clientOptions returns the openflights.Option slice derived from AppConfig.
// Callers append entrypoint-specific options (index interval) before passing
// the full slice to openflights.New.
func clientOptions(cfg config.AppConfig, logger *slog.Logger) []openflights.Option {
	primary, multilingual := cfg.EmbeddingModels()

	opts := []openflights.Option{
		openflights.WithDataDir(cfg.DataDir()),
		openflights.WithDatabaseURL(cfg.DBURL()),
		openflights.WithDimension(cfg.Dimension()),
		openflights.WithModels(primary, multilingual),
		openflights.WithHTTPCacheDir(cfg.HTTPCacheDir()),
		openflights.WithQueryRetry(retryPolicy(cfg.QueryRetry())),
		openflights.WithBatchRetry(retryPolicy(cfg.BatchRetry())),
		openflights.WithFallbackParallelism(cfg.FallbackParallelism()),
		openflights.WithCandidatePool(cfg.CandidatePool()),
		openflights.WithSearchLimit(cfg.SearchLimit()),
		openflights.WithQueryCacheSize(cfg.QueryCacheSize()),
		openflights.WithIndexWorkers(cfg.IndexWorkers()),
		openflights.WithLogger(logger),
	}

	opts = append(opts, embeddingOption(cfg))

	if redis := cfg.Redis(); redis.IsConfigured() {
		opts = append(opts, openflights.WithRedis(cache.RedisOptions{
			Address:  redis.Addr(),
			Password: redis.Password(),
			DB:       redis.DB(),
			TTL:      redis.TTL(),
		}))
	}

	return opts
}

// embeddingOption selects the configured embedding backend. A missing
// credential still yields a client; only text queries fail.
func embeddingOption(cfg config.AppConfig) openflights.Option {
	if cfg.Provider() == config.ProviderOpenAI {
		endpoint := cfg.EmbeddingEndpoint()
		return openflights.WithOpenAIConfig(provider.OpenAIConfig{
			APIKey:  endpoint.APIKey(),
			BaseURL: endpoint.BaseURL(),
			Timeout: endpoint.Timeout(),
		})
	}
	return openflights.WithGemini(cfg.GoogleAPIKey())
}

func retryPolicy(r config.RetryConfig) domainservice.RetryPolicy {
	return domainservice.NewRetryPolicy(r.Attempts(), r.Base()).
		WithCap(r.Cap()).
		WithJitter(r.Jitter())
}
