package openflights

import (
	"io"
	"log/slog"
	"time"

	"github.com/helixml/openflights/application/service"
	"github.com/helixml/openflights/domain/search"
	domainservice "github.com/helixml/openflights/domain/service"
	"github.com/helixml/openflights/infrastructure/cache"
	"github.com/helixml/openflights/infrastructure/provider"
	"github.com/helixml/openflights/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL               string
	dataDir             string
	dimension           int
	primaryModel        string
	multilingualModel   string
	embedder            search.Embedder
	gemini              *provider.GeminiConfig
	openai              *provider.OpenAIConfig
	httpCacheDir        string
	httpTimeout         time.Duration
	queryRetry          domainservice.RetryPolicy
	batchRetry          domainservice.RetryPolicy
	fallbackParallelism int
	candidatePool       int
	searchLimit         int
	queryCacheSize      int
	vectorCache         search.VectorCache
	redis               *cache.RedisOptions
	indexWorkers        int
	indexInterval       time.Duration
	logger              *slog.Logger
	closers             []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:             config.DefaultDataDir(),
		dimension:           config.DefaultDimension,
		primaryModel:        config.DefaultGeminiModel,
		httpTimeout:         config.DefaultEndpointTimeout,
		queryRetry:          domainservice.DefaultQueryRetry(),
		batchRetry:          domainservice.DefaultBatchRetry(),
		fallbackParallelism: config.DefaultFallbackParallelism,
		candidatePool:       service.DefaultCandidatePool,
		searchLimit:         search.DefaultLimit,
		queryCacheSize:      config.DefaultQueryCacheSize,
		indexWorkers:        config.DefaultIndexWorkers,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithDatabaseURL sets the database URL: sqlite:///path or postgres://...
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithSQLite stores everything in a SQLite file with sqlite-vec loaded.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = "sqlite:///" + path
	}
}

// WithPostgres stores everything in PostgreSQL with pgvector.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.dbURL = dsn
	}
}

// WithDataDir sets the data directory. The default database lives there.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithDimension sets the embedding dimension. Values <= 0 are ignored.
func WithDimension(d int) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.dimension = d
		}
	}
}

// WithModels sets the default and multilingual model names. Names are
// normalized to fully qualified identifiers. An empty multilingual name
// means every text uses the default model.
func WithModels(primary, multilingual string) Option {
	return func(c *clientConfig) {
		if primary != "" {
			c.primaryModel = primary
		}
		c.multilingualModel = multilingual
	}
}

// WithEmbedder sets a custom embedding backend, overriding any provider
// option.
func WithEmbedder(e search.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithGemini embeds with the Gemini API. An empty key leaves text queries
// unavailable.
func WithGemini(apiKey string) Option {
	return WithGeminiConfig(provider.GeminiConfig{APIKey: apiKey})
}

// WithGeminiConfig embeds with the Gemini API using custom configuration.
func WithGeminiConfig(cfg provider.GeminiConfig) Option {
	return func(c *clientConfig) {
		c.gemini = &cfg
		c.openai = nil
	}
}

// WithOpenAI embeds with the OpenAI embeddings API.
func WithOpenAI(apiKey string) Option {
	return WithOpenAIConfig(provider.OpenAIConfig{APIKey: apiKey})
}

// WithOpenAIConfig embeds with any OpenAI-compatible endpoint.
func WithOpenAIConfig(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		c.openai = &cfg
		c.gemini = nil
		if cfg.Timeout > 0 {
			c.httpTimeout = cfg.Timeout
		}
	}
}

// WithHTTPCacheDir replays embedding HTTP responses from dir.
func WithHTTPCacheDir(dir string) Option {
	return func(c *clientConfig) {
		c.httpCacheDir = dir
	}
}

// WithQueryRetry sets the retry policy for single query embeddings.
func WithQueryRetry(p domainservice.RetryPolicy) Option {
	return func(c *clientConfig) {
		c.queryRetry = p
	}
}

// WithBatchRetry sets the retry policy for batch embeddings.
func WithBatchRetry(p domainservice.RetryPolicy) Option {
	return func(c *clientConfig) {
		c.batchRetry = p
	}
}

// WithFallbackParallelism sets how many texts are embedded concurrently
// once a batch degrades to per-item requests. Values <= 0 are ignored.
func WithFallbackParallelism(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.fallbackParallelism = n
		}
	}
}

// WithCandidatePool sets how many nearest routes are considered before
// route filters apply. Values <= 0 are ignored.
func WithCandidatePool(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.candidatePool = n
		}
	}
}

// WithSearchLimit sets the default k. Values <= 0 are ignored.
func WithSearchLimit(k int) Option {
	return func(c *clientConfig) {
		if k > 0 {
			c.searchLimit = k
		}
	}
}

// WithQueryCacheSize sets the in-process query vector cache size. Zero
// disables it.
func WithQueryCacheSize(n int) Option {
	return func(c *clientConfig) {
		if n >= 0 {
			c.queryCacheSize = n
		}
	}
}

// WithVectorCache sets a custom query vector cache.
func WithVectorCache(vc search.VectorCache) Option {
	return func(c *clientConfig) {
		c.vectorCache = vc
	}
}

// WithRedis shares query vectors through Redis instead of the in-process
// cache.
func WithRedis(opts cache.RedisOptions) Option {
	return func(c *clientConfig) {
		c.redis = &opts
	}
}

// WithIndexWorkers sets how many chunks the Indexer embeds concurrently.
// Values <= 0 are ignored.
func WithIndexWorkers(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.indexWorkers = n
		}
	}
}

// WithIndexInterval re-runs the Indexer over every kind on this interval.
// Zero disables periodic indexing.
func WithIndexInterval(d time.Duration) Option {
	return func(c *clientConfig) {
		c.indexInterval = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) {
		c.closers = append(c.closers, closer)
	}
}
