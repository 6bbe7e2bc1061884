// Package openflights provides semantic similarity search over the
// OpenFlights airports, airlines and routes datasets.
//
// Entities are described in natural language, embedded with a remote model
// and stored next to their relational rows. Queries are either a
// precomputed vector or free text embedded on the fly.
//
// Basic usage:
//
//	client, err := openflights.New(
//	    openflights.WithSQLite("openflights.db"),
//	    openflights.WithGemini(os.Getenv("GOOGLE_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Load and index the datasets
//	_, err = client.Loader.LoadDir(ctx, "data", "")
//	_, err = client.Indexer.RunAll(ctx, flight.Kinds())
//
//	// Search
//	airports, err := client.Search.SimilarAirports(ctx,
//	    search.NewQuery(search.WithText("busy hub near the sea")),
//	    search.NewAirportFilter(search.WithTZPrefix("Asia/")),
//	    10,
//	)
package openflights

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/helixml/openflights/application/service"
	"github.com/helixml/openflights/domain/search"
	domainservice "github.com/helixml/openflights/domain/service"
	"github.com/helixml/openflights/infrastructure/cache"
	"github.com/helixml/openflights/infrastructure/persistence"
	"github.com/helixml/openflights/infrastructure/provider"
	searchstore "github.com/helixml/openflights/infrastructure/search"
	"github.com/helixml/openflights/internal/config"
	"github.com/helixml/openflights/internal/database"
)

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = service.ErrClientClosed

// Client is the main entry point for the openflights library.
//
// Access services via struct fields:
//
//	client.Search.SimilarRoutes(ctx, query, filter, k)
//	client.Indexer.Run(ctx, flight.KindAirport)
//	client.Loader.LoadDir(ctx, dir, dumpDir)
type Client struct {
	Search  *service.Search
	Indexer *service.Indexer
	Loader  *service.Loader

	db        database.Database
	embedding *domainservice.EmbeddingService
	periodic  *service.PeriodicIndex
	closers   []io.Closer

	logger  *slog.Logger
	dataDir string
	closed  atomic.Bool
	mu      sync.Mutex
}

// New creates a new Client with the given options. The schema is migrated
// and the stored vector dimension checked before New returns.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	dataDir, err := config.PrepareDataDir(cfg.dataDir)
	if err != nil {
		return nil, err
	}

	dbURL := cfg.dbURL
	if dbURL == "" {
		dbURL = config.DefaultDBURL(dataDir)
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.Migrate(ctx, db, cfg.dimension, logger); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("migrate: %w", err), errClose)
	}

	closers := cfg.closers
	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("embedding provider: %w", err), errClose)
	}
	if embedder == nil {
		logger.Warn("no embedding credential configured; text queries are unavailable")
	}

	vectorCache, err := buildVectorCache(ctx, cfg, logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("query cache: %w", err), errClose)
	}
	if c, ok := vectorCache.(io.Closer); ok && cfg.vectorCache == nil {
		closers = append(closers, c)
	}

	embeddingOpts := []domainservice.EmbeddingOption{
		domainservice.WithModels(domainservice.NewModels(
			domainservice.NormalizeModel(cfg.primaryModel),
			domainservice.NormalizeModel(cfg.multilingualModel),
		)),
		domainservice.WithDimension(cfg.dimension),
		domainservice.WithQueryRetry(cfg.queryRetry),
		domainservice.WithBatchRetry(cfg.batchRetry),
		domainservice.WithFallbackParallelism(cfg.fallbackParallelism),
		domainservice.WithEmbeddingLogger(logger),
	}
	if vectorCache != nil {
		embeddingOpts = append(embeddingOpts, domainservice.WithVectorCache(vectorCache))
	}
	embedding, err := domainservice.NewEmbedding(embedder, embeddingOpts...)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("create embedding service: %w", err), errClose)
	}

	entityStore := persistence.NewEntityStore(db)
	embeddingStore := persistence.NewEmbeddingStore(db, logger)
	similarityStore := searchstore.NewSimilarityStore(db, logger)

	client := &Client{
		db:        db,
		embedding: embedding,
		closers:   closers,
		logger:    logger,
		dataDir:   dataDir,
	}

	client.Search, err = service.NewSearch(embedding, similarityStore,
		service.WithCandidatePool(cfg.candidatePool),
		service.WithDefaultLimit(cfg.searchLimit),
		service.WithVectorLookup(embeddingStore),
		service.WithClosedFlag(&client.closed),
		service.WithSearchLogger(logger),
	)
	if err != nil {
		return nil, errors.Join(err, client.closeResources())
	}

	client.Indexer, err = service.NewIndexer(entityStore, embeddingStore, embedding,
		service.WithIndexWorkers(cfg.indexWorkers),
		service.WithIndexerLogger(logger),
	)
	if err != nil {
		return nil, errors.Join(err, client.closeResources())
	}

	client.Loader = service.NewLoader(entityStore, logger)

	client.periodic = service.NewPeriodicIndex(client.Indexer, cfg.indexInterval, logger)
	client.periodic.Start(ctx)

	logger.Info("openflights client ready",
		slog.Int("dimension", cfg.dimension),
		slog.String("model", embedding.Models().Primary()),
		slog.Bool("text_queries", embedding.Available()),
	)
	return client, nil
}

// Close stops periodic indexing and releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.periodic.Stop()

	if err := c.closeResources(); err != nil {
		return err
	}

	c.logger.Info("openflights client closed")
	return nil
}

func (c *Client) closeResources() error {
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Health runs a trivial query against the database.
func (c *Client) Health(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.db.Ping(ctx)
}

// Dimension returns the configured embedding dimension.
func (c *Client) Dimension() int {
	return c.embedding.Dimension()
}

// DataDir returns the prepared data directory.
func (c *Client) DataDir() string {
	return c.dataDir
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// buildEmbedder returns the configured backend, or nil when no credential
// is available.
func buildEmbedder(ctx context.Context, cfg *clientConfig) (search.Embedder, error) {
	if cfg.embedder != nil {
		return cfg.embedder, nil
	}

	var httpClient *http.Client
	if cfg.httpCacheDir != "" {
		transport, err := provider.NewCachingTransport(cfg.httpCacheDir, nil)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Transport: transport, Timeout: cfg.httpTimeout}
	}

	switch {
	case cfg.openai != nil:
		oc := *cfg.openai
		if oc.APIKey == "" && oc.BaseURL == "" {
			return nil, nil
		}
		if httpClient != nil && oc.HTTPClient == nil {
			oc.HTTPClient = httpClient
		}
		return provider.NewOpenAIEmbedder(oc), nil
	case cfg.gemini != nil:
		gc := *cfg.gemini
		if gc.APIKey == "" {
			return nil, nil
		}
		if httpClient != nil && gc.HTTPClient == nil {
			gc.HTTPClient = httpClient
		}
		g, err := provider.NewGeminiEmbedder(ctx, gc)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, nil
	}
}

// buildVectorCache prefers Redis when configured, then an in-process LRU.
func buildVectorCache(ctx context.Context, cfg *clientConfig, logger *slog.Logger) (search.VectorCache, error) {
	if cfg.vectorCache != nil {
		return cfg.vectorCache, nil
	}
	if cfg.redis != nil && cfg.redis.Address != "" {
		r, err := cache.NewRedis(ctx, *cfg.redis, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.redis.Address, err)
		}
		return r, nil
	}
	if cfg.queryCacheSize > 0 {
		return cache.NewLRU(cfg.queryCacheSize), nil
	}
	return nil, nil
}
