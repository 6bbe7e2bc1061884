package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/repository"
	"github.com/helixml/openflights/domain/search"
	domainservice "github.com/helixml/openflights/domain/service"
)

// Indexing defaults and bounds.
const (
	DefaultBatchSize = 128
	MinBatchSize     = 16
	MaxBatchSize     = 512
	DefaultPageSize  = 4000
)

// ClampBatchSize forces n into [MinBatchSize, MaxBatchSize].
func ClampBatchSize(n int) int {
	return max(MinBatchSize, min(MaxBatchSize, n))
}

// IndexOption configures one indexing run.
type IndexOption func(*indexRun)

type indexRun struct {
	batch    int
	page     int
	limit    int
	tzPrefix string
	force    bool
}

func newIndexRun(opts ...IndexOption) indexRun {
	r := indexRun{batch: DefaultBatchSize, page: DefaultPageSize}
	for _, opt := range opts {
		opt(&r)
	}
	r.batch = ClampBatchSize(r.batch)
	r.page = max(r.page, r.batch)
	return r
}

// WithBatchSize sets how many descriptions go into one embedding request.
func WithBatchSize(n int) IndexOption {
	return func(r *indexRun) { r.batch = n }
}

// WithPageSize sets how many unindexed rows are fetched per page. It is
// raised to at least the batch size.
func WithPageSize(n int) IndexOption {
	return func(r *indexRun) {
		if n > 0 {
			r.page = n
		}
	}
}

// WithRowLimit stops after n rows. Zero means no limit.
func WithRowLimit(n int) IndexOption {
	return func(r *indexRun) {
		if n >= 0 {
			r.limit = n
		}
	}
}

// WithTZFilter restricts airports to a timezone prefix. Other kinds ignore it.
func WithTZFilter(prefix string) IndexOption {
	return func(r *indexRun) { r.tzPrefix = strings.TrimSpace(prefix) }
}

// WithForce re-embeds every record in scope, overwriting stored descriptions
// and vectors, instead of only records that have no embedding yet.
func WithForce() IndexOption {
	return func(r *indexRun) { r.force = true }
}

// IndexResult summarises one indexing run.
type IndexResult struct {
	Kind     flight.Kind
	Indexed  int
	Skipped  int
	Pages    int
	Duration time.Duration
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithIndexWorkers sets how many chunks are embedded concurrently.
func WithIndexWorkers(n int) IndexerOption {
	return func(i *Indexer) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithIndexerLogger sets the logger.
func WithIndexerLogger(l *slog.Logger) IndexerOption {
	return func(i *Indexer) {
		if l != nil {
			i.logger = l
		}
	}
}

// Indexer embeds entities that have no embedding row yet. Runs are
// restartable: rows already embedded are never fetched again.
type Indexer struct {
	entities   flight.Store
	embeddings search.EmbeddingStore
	embedding  *domainservice.EmbeddingService
	workers    int
	logger     *slog.Logger
}

// NewIndexer creates a new Indexer.
func NewIndexer(
	entities flight.Store,
	embeddings search.EmbeddingStore,
	embedding *domainservice.EmbeddingService,
	opts ...IndexerOption,
) (*Indexer, error) {
	if entities == nil {
		return nil, fmt.Errorf("NewIndexer: nil entities")
	}
	if embeddings == nil {
		return nil, fmt.Errorf("NewIndexer: nil embeddings")
	}
	if embedding == nil {
		return nil, fmt.Errorf("NewIndexer: nil embedding service")
	}
	i := &Indexer{
		entities:   entities,
		embeddings: embeddings,
		embedding:  embedding,
		workers:    1,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Stream yields pages of unindexed records of kind in id order until a page
// comes back empty or the row limit is reached. Pages are fetched lazily, so
// a consumer that embeds each page before pulling the next sees only rows
// still lacking an embedding. With WithForce every record is yielded.
func (i *Indexer) Stream(ctx context.Context, kind flight.Kind, opts ...IndexOption) iter.Seq2[[]flight.Record, error] {
	run := newIndexRun(opts...)
	return func(yield func([]flight.Record, error) bool) {
		var (
			after int64
			seen  int
		)
		for {
			size := run.page
			if run.limit > 0 {
				size = min(size, run.limit-seen)
				if size <= 0 {
					return
				}
			}
			options := []repository.Option{repository.WithLimit(size)}
			if kind == flight.KindAirport {
				options = append(options, repository.WithTZPrefix(run.tzPrefix))
			}
			fetch := i.entities.Unindexed
			if run.force {
				fetch = i.entities.Records
			}
			page, err := fetch(ctx, kind, after, options...)
			if err != nil {
				yield(nil, fmt.Errorf("fetch unindexed %s: %w", kind.Plural(), err))
				return
			}
			if len(page) == 0 {
				return
			}
			if !yield(page, nil) {
				return
			}
			after = page[len(page)-1].ID()
			seen += len(page)
		}
	}
}

// Run embeds every unindexed record of kind and upserts the results. It stops
// at the first chunk that cannot be embedded; chunks before it stay stored.
func (i *Indexer) Run(ctx context.Context, kind flight.Kind, opts ...IndexOption) (IndexResult, error) {
	run := newIndexRun(opts...)
	result := IndexResult{Kind: kind}
	began := time.Now()

	pool, err := ants.NewPool(i.workers)
	if err != nil {
		return result, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	progress := newProgress(kind, i.logger)
	i.logger.Info("indexing started",
		slog.String("kind", kind.String()),
		slog.Int("batch", run.batch),
		slog.Int("page", run.page),
		slog.Int("workers", i.workers),
		slog.Bool("force", run.force),
	)

	for page, err := range i.Stream(ctx, kind, opts...) {
		if err != nil {
			return result, err
		}
		result.Pages++
		chunks, skipped := chunk(page, run.batch)
		for _, id := range skipped {
			i.logger.Warn("skipping record with empty description", slog.String("kind", kind.String()), slog.Int64("id", id))
		}
		result.Skipped += len(skipped)

		for from := 0; from < len(chunks); from += i.workers {
			window := chunks[from:min(from+i.workers, len(chunks))]
			embedded := i.embedWindow(ctx, pool, window)
			for j, c := range window {
				if embedded[j].err != nil {
					result.Duration = time.Since(began)
					return result, fmt.Errorf("embed %s chunk starting at id %d: %w", kind, c.ids[0], embedded[j].err)
				}
				if err := i.embeddings.Upsert(ctx, kind, c.embeddings(embedded[j].vectors)); err != nil {
					result.Duration = time.Since(began)
					return result, fmt.Errorf("store %s embeddings: %w", kind, err)
				}
				result.Indexed += len(c.ids)
				progress.add(len(c.ids))
			}
		}
	}

	result.Duration = time.Since(began)
	i.logger.Info("indexing finished",
		slog.String("kind", kind.String()),
		slog.Int("indexed", result.Indexed),
		slog.Int("skipped", result.Skipped),
		slog.Int("pages", result.Pages),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// RunAll indexes each kind in turn, stopping at the first failure.
func (i *Indexer) RunAll(ctx context.Context, kinds []flight.Kind, opts ...IndexOption) ([]IndexResult, error) {
	results := make([]IndexResult, 0, len(kinds))
	for _, kind := range kinds {
		r, err := i.Run(ctx, kind, opts...)
		results = append(results, r)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Status counts entities and embedded entities for each kind.
func (i *Indexer) Status(ctx context.Context) ([]search.IndexStatus, error) {
	statuses := make([]search.IndexStatus, 0, len(flight.Kinds()))
	for _, kind := range flight.Kinds() {
		total, err := i.entities.Count(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", kind.Plural(), err)
		}
		embedded, err := i.embeddings.Count(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", kind.EmbeddingTable(), err)
		}
		statuses = append(statuses, search.IndexStatus{Kind: kind, Total: total, Embedded: embedded})
	}
	return statuses, nil
}

type chunkResult struct {
	vectors []search.Vector
	err     error
}

// embedWindow embeds chunks concurrently on the pool and returns results in
// chunk order.
func (i *Indexer) embedWindow(ctx context.Context, pool *ants.Pool, window []recordChunk) []chunkResult {
	results := make([]chunkResult, len(window))
	var wg sync.WaitGroup
	for j, c := range window {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			vectors, err := i.embedding.EmbedBatch(ctx, c.texts, search.TaskRetrievalDocument)
			results[j] = chunkResult{vectors: vectors, err: err}
		})
		if err != nil {
			wg.Done()
			results[j] = chunkResult{err: fmt.Errorf("submit chunk: %w", err)}
		}
	}
	wg.Wait()
	return results
}

// recordChunk is one embedding request worth of records.
type recordChunk struct {
	ids   []int64
	texts []string
}

func (c recordChunk) embeddings(vectors []search.Vector) []search.Embedding {
	out := make([]search.Embedding, len(c.ids))
	for j, id := range c.ids {
		out[j] = search.NewEmbedding(id, c.texts[j], vectors[j])
	}
	return out
}

// chunk builds descriptions and splits them into groups of size. Records
// whose description is blank are returned separately.
func chunk(records []flight.Record, size int) ([]recordChunk, []int64) {
	var (
		chunks  []recordChunk
		current recordChunk
		skipped []int64
	)
	for _, r := range records {
		text := flight.Describe(r)
		if strings.TrimSpace(text) == "" {
			skipped = append(skipped, r.ID())
			continue
		}
		current.ids = append(current.ids, r.ID())
		current.texts = append(current.texts, text)
		if len(current.ids) == size {
			chunks = append(chunks, current)
			current = recordChunk{}
		}
	}
	if len(current.ids) > 0 {
		chunks = append(chunks, current)
	}
	return chunks, skipped
}

// progress logs running totals every kind.ProgressInterval() rows.
type progress struct {
	kind   flight.Kind
	total  int
	next   int
	logger *slog.Logger
}

func newProgress(kind flight.Kind, logger *slog.Logger) *progress {
	return &progress{kind: kind, next: kind.ProgressInterval(), logger: logger}
}

func (p *progress) add(n int) {
	p.total += n
	for p.total >= p.next {
		p.logger.Info("indexing progress", slog.String("kind", p.kind.String()), slog.Int("indexed", p.total))
		p.next += p.kind.ProgressInterval()
	}
}
