package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Field names map to environment variables without a prefix.
// Nested structs use underscore delimiter (e.g., EMBEDDING_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.openflights
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/openflights.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// EmbeddingProvider selects the embedding backend (gemini or openai).
	// Env: EMBEDDING_PROVIDER (default: gemini)
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"gemini"`

	// GoogleAPIKey is the Gemini credential. Without it text queries fail and
	// vector queries still work.
	// Env: GOOGLE_API_KEY
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`

	// Gemini configures the Gemini models.
	Gemini GeminiEnv `envconfig:"GEMINI"`

	// EmbeddingEndpoint configures the OpenAI-compatible backend.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// QueryRetry configures retries of single-text embedding.
	QueryRetry QueryRetryEnv `envconfig:"QUERY_RETRY"`

	// BatchRetry configures retries of batch embedding.
	BatchRetry BatchRetryEnv `envconfig:"BATCH_RETRY"`

	// FallbackParallelism bounds concurrent per-text fallback requests.
	// Env: FALLBACK_PARALLELISM (default: 4)
	FallbackParallelism int `envconfig:"FALLBACK_PARALLELISM" default:"4"`

	// CandidatePool is how many nearest routes are filtered and re-ranked.
	// Env: CANDIDATE_POOL (default: 2000)
	CandidatePool int `envconfig:"CANDIDATE_POOL" default:"2000"`

	// SearchDefaultLimit is k when a request supplies none.
	// Env: SEARCH_DEFAULT_LIMIT (default: 25)
	SearchDefaultLimit int `envconfig:"SEARCH_DEFAULT_LIMIT" default:"25"`

	// QueryCacheSize is the in-process query-vector cache size; 0 disables it.
	// Env: QUERY_CACHE_SIZE (default: 1024)
	QueryCacheSize int `envconfig:"QUERY_CACHE_SIZE" default:"1024"`

	// Redis configures the shared query-vector cache.
	Redis RedisEnv `envconfig:"REDIS"`

	// HTTPCacheDir is the directory for caching embedding HTTP responses to disk.
	// Env: HTTP_CACHE_DIR
	HTTPCacheDir string `envconfig:"HTTP_CACHE_DIR"`

	// IndexWorkers is how many chunks are embedded concurrently.
	// Env: INDEX_WORKERS (default: 1)
	IndexWorkers int `envconfig:"INDEX_WORKERS" default:"1"`

	// IndexIntervalSeconds enables background indexing while serving.
	// Env: INDEX_INTERVAL_SECONDS (default: 0, disabled)
	IndexIntervalSeconds float64 `envconfig:"INDEX_INTERVAL_SECONDS" default:"0"`

	// CORSOrigins is a comma-separated list of allowed origins.
	// Env: CORS_ORIGINS (default: *)
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`
}

// GeminiEnv holds environment configuration for Gemini embeddings.
type GeminiEnv struct {
	// EmbedModel is the default model.
	// Env: GEMINI_EMBED_MODEL (default: models/text-embedding-004)
	EmbedModel string `envconfig:"EMBED_MODEL" default:"models/text-embedding-004"`

	// MultiEmbedModel is used for non-ASCII text. Defaults to EmbedModel.
	// Env: GEMINI_MULTI_EMBED_MODEL
	MultiEmbedModel string `envconfig:"MULTI_EMBED_MODEL"`

	// EmbedDim is the vector dimension.
	// Env: GEMINI_EMBED_DIM (default: 768)
	EmbedDim int `envconfig:"EMBED_DIM" default:"768"`
}

// EndpointEnv holds environment configuration for an OpenAI-compatible
// embedding endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// APIKey is the API key for authentication.
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Model is the default model identifier.
	// Env: *_MODEL (default: text-embedding-3-small)
	Model string `envconfig:"MODEL" default:"text-embedding-3-small"`

	// MultiModel is used for non-ASCII text.
	// Env: *_MULTI_MODEL
	MultiModel string `envconfig:"MULTI_MODEL"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`
}

// QueryRetryEnv holds the single-text retry policy.
type QueryRetryEnv struct {
	// Attempts is the total number of attempts.
	// Env: QUERY_RETRY_ATTEMPTS (default: 4)
	Attempts int `envconfig:"ATTEMPTS" default:"4"`

	// Base is the first delay in seconds.
	// Env: QUERY_RETRY_BASE (default: 0.4)
	Base float64 `envconfig:"BASE" default:"0.4"`
}

// BatchRetryEnv holds the batch retry policy.
type BatchRetryEnv struct {
	// Attempts is the total number of attempts.
	// Env: BATCH_RETRY_ATTEMPTS (default: 8)
	Attempts int `envconfig:"ATTEMPTS" default:"8"`

	// Base is the first delay in seconds.
	// Env: BATCH_RETRY_BASE (default: 0.5)
	Base float64 `envconfig:"BASE" default:"0.5"`

	// Cap is the longest delay in seconds.
	// Env: BATCH_RETRY_CAP (default: 20)
	Cap float64 `envconfig:"CAP" default:"20"`

	// Jitter is the random delay added to each wait, in seconds.
	// Env: BATCH_RETRY_JITTER (default: 0.25)
	Jitter float64 `envconfig:"JITTER" default:"0.25"`
}

// RedisEnv holds environment configuration for the shared cache.
type RedisEnv struct {
	// Addr is host:port. Empty disables Redis.
	// Env: REDIS_ADDR
	Addr string `envconfig:"ADDR"`

	// Password is the AUTH password.
	// Env: REDIS_PASSWORD
	Password string `envconfig:"PASSWORD"`

	// DB is the database number.
	// Env: REDIS_DB (default: 0)
	DB int `envconfig:"DB" default:"0"`

	// TTL is the entry lifetime.
	// Env: REDIS_TTL (default: 24h)
	TTL time.Duration `envconfig:"TTL" default:"24h"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "OPENFLIGHTS" would require OPENFLIGHTS_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	// Apply overrides from environment
	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}

	// Embedding backend
	cfg = applyOption(cfg, WithProvider(parseProvider(e.EmbeddingProvider)))
	cfg = applyOption(cfg, WithGoogleAPIKey(e.GoogleAPIKey))
	cfg = applyOption(cfg, WithGeminiModels(e.Gemini.EmbedModel, e.Gemini.MultiEmbedModel))
	cfg = applyOption(cfg, WithDimension(e.Gemini.EmbedDim))
	cfg = applyOption(cfg, WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))

	// Retry policies
	cfg = applyOption(cfg, WithQueryRetry(e.QueryRetry.ToRetryConfig()))
	cfg = applyOption(cfg, WithBatchRetry(e.BatchRetry.ToRetryConfig()))
	cfg = applyOption(cfg, WithFallbackParallelism(e.FallbackParallelism))

	// Search
	cfg = applyOption(cfg, WithCandidatePool(e.CandidatePool))
	cfg = applyOption(cfg, WithSearchLimit(e.SearchDefaultLimit))

	// Caches
	cfg = applyOption(cfg, WithQueryCacheSize(e.QueryCacheSize))
	if e.Redis.Addr != "" {
		cfg = applyOption(cfg, WithRedis(e.Redis.ToRedisConfig()))
	}
	if e.HTTPCacheDir != "" {
		cfg = applyOption(cfg, WithHTTPCacheDir(e.HTTPCacheDir))
	}

	// Indexing
	cfg = applyOption(cfg, WithIndexWorkers(e.IndexWorkers))
	cfg = applyOption(cfg, WithIndexInterval(seconds(e.IndexIntervalSeconds)))

	cfg = applyOption(cfg, WithCORSOrigins(ParseList(e.CORSOrigins)))

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithTimeout(seconds(e.Timeout)),
		WithMultilingualModel(e.MultiModel),
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	return NewEndpointWithOptions(opts...)
}

// ToRetryConfig converts QueryRetryEnv to RetryConfig.
func (r QueryRetryEnv) ToRetryConfig() RetryConfig {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultQueryRetryAttempts
	}
	return NewRetryConfig(attempts, seconds(r.Base))
}

// ToRetryConfig converts BatchRetryEnv to RetryConfig.
func (r BatchRetryEnv) ToRetryConfig() RetryConfig {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = DefaultBatchRetryAttempts
	}
	return NewRetryConfig(attempts, seconds(r.Base)).
		WithCap(seconds(r.Cap)).
		WithJitter(seconds(r.Jitter))
}

// ToRedisConfig converts RedisEnv to RedisConfig.
func (r RedisEnv) ToRedisConfig() RedisConfig {
	return NewRedisConfig().
		WithAddr(r.Addr).
		WithPassword(r.Password).
		WithDB(r.DB).
		WithTTL(r.TTL)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

// parseProvider parses an embedding provider name.
func parseProvider(s string) Provider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return ProviderOpenAI
	default:
		return ProviderGemini
	}
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
