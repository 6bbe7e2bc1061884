// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                = "0.0.0.0"
	DefaultPort                = 8080
	DefaultLogLevel            = "INFO"
	DefaultEmbeddingProvider   = ProviderGemini
	DefaultGeminiModel         = "models/text-embedding-004"
	DefaultOpenAIModel         = "text-embedding-3-small"
	DefaultDimension           = 768
	DefaultEndpointTimeout     = 60 * time.Second
	DefaultQueryRetryAttempts  = 4
	DefaultQueryRetryBase      = 400 * time.Millisecond
	DefaultBatchRetryAttempts  = 8
	DefaultBatchRetryBase      = 500 * time.Millisecond
	DefaultBatchRetryCap       = 20 * time.Second
	DefaultBatchRetryJitter    = 250 * time.Millisecond
	DefaultFallbackParallelism = 4
	DefaultCandidatePool       = 2000
	DefaultSearchLimit         = 25
	DefaultQueryCacheSize      = 1024
	DefaultRedisTTL            = 24 * time.Hour
	DefaultIndexWorkers        = 1
	DefaultDumpSubdir          = "dumps"
	DefaultDatabaseFile        = "openflights.db"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Provider names an embedding backend.
type Provider string

// Provider values.
const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Endpoint configures an OpenAI-compatible embedding service.
type Endpoint struct {
	baseURL    string
	model      string
	multiModel string
	apiKey     string
	timeout    time.Duration
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		model:   DefaultOpenAIModel,
		timeout: DefaultEndpointTimeout,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the default model.
func (e Endpoint) Model() string { return e.model }

// MultilingualModel returns the model used for non-ASCII text, or "".
func (e Endpoint) MultilingualModel() string { return e.multiModel }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// IsConfigured reports whether a key or base URL is set.
func (e Endpoint) IsConfigured() bool {
	return e.apiKey != "" || e.baseURL != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the default model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithMultilingualModel sets the multilingual model.
func WithMultilingualModel(model string) EndpointOption {
	return func(e *Endpoint) { e.multiModel = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEndpointWithOptions creates an Endpoint with options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// RetryConfig configures an exponential backoff policy.
type RetryConfig struct {
	attempts int
	base     time.Duration
	cap      time.Duration
	jitter   time.Duration
}

// NewRetryConfig creates a RetryConfig.
func NewRetryConfig(attempts int, base time.Duration) RetryConfig {
	return RetryConfig{attempts: attempts, base: base}
}

// Attempts returns the total number of attempts.
func (r RetryConfig) Attempts() int { return r.attempts }

// Base returns the first delay.
func (r RetryConfig) Base() time.Duration { return r.base }

// Cap returns the longest delay, or zero for none.
func (r RetryConfig) Cap() time.Duration { return r.cap }

// Jitter returns the random delay added to each wait.
func (r RetryConfig) Jitter() time.Duration { return r.jitter }

// WithCap returns a new config with the delay cap.
func (r RetryConfig) WithCap(d time.Duration) RetryConfig {
	r.cap = d
	return r
}

// WithJitter returns a new config with the jitter.
func (r RetryConfig) WithJitter(d time.Duration) RetryConfig {
	r.jitter = d
	return r
}

// RedisConfig configures the shared query-vector cache.
type RedisConfig struct {
	addr     string
	password string
	db       int
	ttl      time.Duration
}

// NewRedisConfig creates a RedisConfig with defaults.
func NewRedisConfig() RedisConfig {
	return RedisConfig{ttl: DefaultRedisTTL}
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return r.addr }

// Password returns the password.
func (r RedisConfig) Password() string { return r.password }

// DB returns the database number.
func (r RedisConfig) DB() int { return r.db }

// TTL returns the entry lifetime.
func (r RedisConfig) TTL() time.Duration { return r.ttl }

// IsConfigured reports whether an address is set.
func (r RedisConfig) IsConfigured() bool { return r.addr != "" }

// WithAddr returns a new config with the address.
func (r RedisConfig) WithAddr(addr string) RedisConfig {
	r.addr = addr
	return r
}

// WithPassword returns a new config with the password.
func (r RedisConfig) WithPassword(password string) RedisConfig {
	r.password = password
	return r
}

// WithDB returns a new config with the database number.
func (r RedisConfig) WithDB(db int) RedisConfig {
	r.db = db
	return r
}

// WithTTL returns a new config with the entry lifetime.
func (r RedisConfig) WithTTL(d time.Duration) RedisConfig {
	if d > 0 {
		r.ttl = d
	}
	return r
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host                string
	port                int
	dataDir             string
	dbURL               string
	logLevel            string
	logFormat           LogFormat
	provider            Provider
	googleAPIKey        string
	geminiModel         string
	geminiMultiModel    string
	dimension           int
	embeddingEndpoint   Endpoint
	queryRetry          RetryConfig
	batchRetry          RetryConfig
	fallbackParallelism int
	candidatePool       int
	searchLimit         int
	queryCacheSize      int
	redis               RedisConfig
	httpCacheDir        string
	indexWorkers        int
	indexInterval       time.Duration
	corsOrigins         []string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".openflights"
	}
	return filepath.Join(home, ".openflights")
}

// DefaultDBURL returns the sqlite URL inside dataDir.
func DefaultDBURL(dataDir string) string {
	return "sqlite:///" + filepath.Join(dataDir, DefaultDatabaseFile)
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:                DefaultHost,
		port:                DefaultPort,
		dataDir:             dataDir,
		dbURL:               DefaultDBURL(dataDir),
		logLevel:            DefaultLogLevel,
		logFormat:           LogFormatPretty,
		provider:            DefaultEmbeddingProvider,
		geminiModel:         DefaultGeminiModel,
		dimension:           DefaultDimension,
		embeddingEndpoint:   NewEndpoint(),
		queryRetry:          NewRetryConfig(DefaultQueryRetryAttempts, DefaultQueryRetryBase),
		batchRetry:          NewRetryConfig(DefaultBatchRetryAttempts, DefaultBatchRetryBase).WithCap(DefaultBatchRetryCap).WithJitter(DefaultBatchRetryJitter),
		fallbackParallelism: DefaultFallbackParallelism,
		candidatePool:       DefaultCandidatePool,
		searchLimit:         DefaultSearchLimit,
		queryCacheSize:      DefaultQueryCacheSize,
		redis:               NewRedisConfig(),
		indexWorkers:        DefaultIndexWorkers,
		corsOrigins:         []string{"*"},
	}
}

// Host returns the server host.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port.
func (c AppConfig) Port() int { return c.port }

// Addr returns the server address (host:port).
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// Provider returns the embedding backend.
func (c AppConfig) Provider() Provider { return c.provider }

// GoogleAPIKey returns the Gemini credential.
func (c AppConfig) GoogleAPIKey() string { return c.googleAPIKey }

// Dimension returns the embedding vector dimension.
func (c AppConfig) Dimension() int { return c.dimension }

// EmbeddingEndpoint returns the OpenAI-compatible endpoint config.
func (c AppConfig) EmbeddingEndpoint() Endpoint { return c.embeddingEndpoint }

// EmbeddingModels returns the default and multilingual model names of the
// selected provider, as configured. The multilingual model falls back to the
// default.
func (c AppConfig) EmbeddingModels() (string, string) {
	primary, multi := c.geminiModel, c.geminiMultiModel
	if c.provider == ProviderOpenAI {
		primary, multi = c.embeddingEndpoint.Model(), c.embeddingEndpoint.MultilingualModel()
	}
	if multi == "" {
		multi = primary
	}
	return primary, multi
}

// EmbeddingAPIKey returns the credential of the selected provider.
func (c AppConfig) EmbeddingAPIKey() string {
	if c.provider == ProviderOpenAI {
		return c.embeddingEndpoint.APIKey()
	}
	return c.googleAPIKey
}

// QueryRetry returns the single-text retry policy.
func (c AppConfig) QueryRetry() RetryConfig { return c.queryRetry }

// BatchRetry returns the batch retry policy.
func (c AppConfig) BatchRetry() RetryConfig { return c.batchRetry }

// FallbackParallelism returns the concurrency of per-text fallback.
func (c AppConfig) FallbackParallelism() int { return c.fallbackParallelism }

// CandidatePool returns the route candidate pool size.
func (c AppConfig) CandidatePool() int { return c.candidatePool }

// SearchLimit returns the default k.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// QueryCacheSize returns the in-process query-vector cache size.
func (c AppConfig) QueryCacheSize() int { return c.queryCacheSize }

// Redis returns the shared cache config.
func (c AppConfig) Redis() RedisConfig { return c.redis }

// HTTPCacheDir returns the directory for caching embedding HTTP responses.
func (c AppConfig) HTTPCacheDir() string { return c.httpCacheDir }

// IndexWorkers returns how many chunks are embedded concurrently.
func (c AppConfig) IndexWorkers() int { return c.indexWorkers }

// IndexInterval returns the period of background indexing while serving.
// Zero disables it.
func (c AppConfig) IndexInterval() time.Duration { return c.indexInterval }

// CORSOrigins returns the allowed origins.
func (c AppConfig) CORSOrigins() []string {
	result := make([]string, len(c.corsOrigins))
	copy(result, c.corsOrigins)
	return result
}

// DumpDir returns where description dumps are written.
func (c AppConfig) DumpDir() string {
	return filepath.Join(c.dataDir, DefaultDumpSubdir)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory. A database URL still pointing at the
// previous default moves with it.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		if c.dbURL == DefaultDBURL(c.dataDir) {
			c.dbURL = DefaultDBURL(dir)
		}
		c.dataDir = dir
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithProvider sets the embedding backend.
func WithProvider(p Provider) AppConfigOption {
	return func(c *AppConfig) { c.provider = p }
}

// WithGoogleAPIKey sets the Gemini credential.
func WithGoogleAPIKey(key string) AppConfigOption {
	return func(c *AppConfig) { c.googleAPIKey = key }
}

// WithGeminiModels sets the Gemini default and multilingual models. An empty
// multilingual model means the default is used for every text.
func WithGeminiModels(model, multilingual string) AppConfigOption {
	return func(c *AppConfig) {
		if model != "" {
			c.geminiModel = model
		}
		c.geminiMultiModel = multilingual
	}
}

// WithDimension sets the embedding dimension.
func WithDimension(d int) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.dimension = d
		}
	}
}

// WithEmbeddingEndpoint sets the OpenAI-compatible endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = e }
}

// WithQueryRetry sets the single-text retry policy.
func WithQueryRetry(r RetryConfig) AppConfigOption {
	return func(c *AppConfig) { c.queryRetry = r }
}

// WithBatchRetry sets the batch retry policy.
func WithBatchRetry(r RetryConfig) AppConfigOption {
	return func(c *AppConfig) { c.batchRetry = r }
}

// WithFallbackParallelism sets the concurrency of per-text fallback.
func WithFallbackParallelism(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.fallbackParallelism = n
		}
	}
}

// WithCandidatePool sets the route candidate pool size.
func WithCandidatePool(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.candidatePool = n
		}
	}
}

// WithSearchLimit sets the default k.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithQueryCacheSize sets the in-process cache size. Zero disables it.
func WithQueryCacheSize(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n >= 0 {
			c.queryCacheSize = n
		}
	}
}

// WithRedis sets the shared cache config.
func WithRedis(r RedisConfig) AppConfigOption {
	return func(c *AppConfig) { c.redis = r }
}

// WithHTTPCacheDir sets the HTTP response cache directory.
func WithHTTPCacheDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.httpCacheDir = dir }
}

// WithIndexWorkers sets how many chunks are embedded concurrently.
func WithIndexWorkers(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.indexWorkers = n
		}
	}
}

// WithIndexInterval sets the background indexing period.
func WithIndexInterval(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d >= 0 {
			c.indexInterval = d
		}
	}
}

// WithCORSOrigins sets the allowed origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) {
		if len(origins) > 0 {
			c.corsOrigins = origins
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	c.corsOrigins = append([]string(nil), c.corsOrigins...)
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Credentials are reported only as present or absent.
func (c AppConfig) LogAttrs() []slog.Attr {
	primary, multi := c.EmbeddingModels()
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("embedding_provider", string(c.provider)),
		slog.String("embedding_model", primary),
		slog.String("embedding_multi_model", multi),
		slog.Int("embedding_dim", c.dimension),
		slog.Bool("embedding_credential", c.EmbeddingAPIKey() != ""),
		slog.Int("candidate_pool", c.candidatePool),
		slog.Int("query_cache_size", c.queryCacheSize),
		slog.Bool("redis_cache", c.redis.IsConfigured()),
		slog.Int("index_workers", c.indexWorkers),
		slog.Duration("index_interval", c.indexInterval),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseList parses a comma-separated list, dropping blanks.
func ParseList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
