package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/helixml/openflights/domain/search"
)

const (
	strategyBatch   = "batch"
	strategyPerItem = "per-item"
)

// EmbeddingOption configures an EmbeddingService.
type EmbeddingOption func(*EmbeddingService)

// WithModels sets the default and multilingual models.
func WithModels(m Models) EmbeddingOption {
	return func(s *EmbeddingService) { s.models = m }
}

// WithDimension sets the expected vector length.
func WithDimension(d int) EmbeddingOption {
	return func(s *EmbeddingService) { s.dimension = d }
}

// WithQueryRetry sets the retry policy for single-text embeddings.
func WithQueryRetry(p RetryPolicy) EmbeddingOption {
	return func(s *EmbeddingService) { s.single = p }
}

// WithBatchRetry sets the retry policy for whole-batch embeddings.
func WithBatchRetry(p RetryPolicy) EmbeddingOption {
	return func(s *EmbeddingService) { s.batch = p }
}

// WithFallbackParallelism bounds concurrent per-item calls after a batch
// gives up.
func WithFallbackParallelism(n int) EmbeddingOption {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithVectorCache caches query-task vectors.
func WithVectorCache(c search.VectorCache) EmbeddingOption {
	return func(s *EmbeddingService) { s.cache = c }
}

// WithEmbeddingLogger sets the logger used for retry and fallback messages.
func WithEmbeddingLogger(l *slog.Logger) EmbeddingOption {
	return func(s *EmbeddingService) {
		if l != nil {
			s.logger = l
		}
	}
}

// EmbeddingService turns text into vectors with retry, model selection and
// batch degradation on top of a single-attempt Embedder.
type EmbeddingService struct {
	embedder    search.Embedder
	models      Models
	dimension   int
	single      RetryPolicy
	batch       RetryPolicy
	parallelism int
	cache       search.VectorCache
	logger      *slog.Logger
}

// NewEmbedding creates an EmbeddingService. A nil embedder is allowed: every
// embedding call then fails with search.ErrMissingCredential, leaving
// vector-only search usable.
func NewEmbedding(embedder search.Embedder, opts ...EmbeddingOption) (*EmbeddingService, error) {
	s := &EmbeddingService{
		embedder:    embedder,
		dimension:   768,
		single:      DefaultQueryRetry(),
		batch:       DefaultBatchRetry(),
		parallelism: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dimension <= 0 {
		return nil, fmt.Errorf("NewEmbedding: dimension must be positive, got %d", s.dimension)
	}
	if embedder != nil && s.models.Primary() == "" {
		return nil, fmt.Errorf("NewEmbedding: default model is required")
	}
	return s, nil
}

// Available reports whether an embedding backend is configured.
func (s *EmbeddingService) Available() bool { return s.embedder != nil }

// Dimension returns the expected vector length.
func (s *EmbeddingService) Dimension() int { return s.dimension }

// Models returns the configured models.
func (s *EmbeddingService) Models() Models { return s.models }

// SelectModel picks the model used to embed text.
func (s *EmbeddingService) SelectModel(text string, forceMultilingual bool) string {
	return s.models.Select(text, forceMultilingual)
}

// EmbedOne embeds a single text using the model chosen by SelectModel.
func (s *EmbeddingService) EmbedOne(ctx context.Context, text string, task search.TaskType, forceMultilingual bool) (search.Vector, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, search.ErrEmptyInput
	}
	if s.embedder == nil {
		return nil, search.ErrMissingCredential
	}

	model := s.SelectModel(text, forceMultilingual)
	key := search.CacheKey(model, task, text)
	if s.cache != nil && task == search.TaskRetrievalQuery {
		if v, ok := s.cache.Get(ctx, key); ok && len(v) == s.dimension {
			return v, nil
		}
	}

	v, err := s.embedSingle(ctx, model, task, text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && task == search.TaskRetrievalQuery {
		s.cache.Put(ctx, key, v)
	}
	return v, nil
}

// EmbedBatch embeds texts with the default model. The whole batch is retried
// first; once that budget is spent each text is embedded on its own. The
// result always has one vector per text in input order, or an error.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string, task search.TaskType) ([]search.Vector, error) {
	if len(texts) == 0 {
		return []search.Vector{}, nil
	}
	if s.embedder == nil {
		return nil, search.ErrMissingCredential
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("text %d: %w", i, search.ErrEmptyInput)
		}
	}

	model := s.models.Primary()
	vectors, used, err := firstSuccess(ctx, texts,
		batchStrategy{name: strategyBatch, run: func(ctx context.Context, texts []string) ([]search.Vector, error) {
			return s.embedWhole(ctx, model, task, texts)
		}},
		batchStrategy{name: strategyPerItem, run: func(ctx context.Context, texts []string) ([]search.Vector, error) {
			return s.embedEach(ctx, model, task, texts)
		}},
	)
	if err != nil {
		return nil, err
	}
	if used != strategyBatch {
		s.logger.Warn("batch embedding degraded", slog.String("strategy", used), slog.Int("texts", len(texts)))
	}
	return vectors, nil
}

// embedWhole sends all texts in one request per attempt.
func (s *EmbeddingService) embedWhole(ctx context.Context, model string, task search.TaskType, texts []string) ([]search.Vector, error) {
	req := search.NewEmbeddingRequest(model, task, s.dimension, texts)
	var result []search.Vector
	attempt := 0

	err := retry.Do(ctx, s.batch.backoff(), func(ctx context.Context) error {
		attempt++
		vectors, err := s.embedder.Embed(ctx, req)
		if err == nil {
			err = s.validate(vectors, len(texts))
		}
		if err != nil {
			if errors.Is(err, search.ErrDimensionMismatch) {
				return err
			}
			s.logger.Warn("batch embedding attempt failed",
				slog.Int("attempt", attempt),
				slog.Int("attempts", s.batch.Attempts()),
				slog.String("error", err.Error()),
			)
			return retry.RetryableError(err)
		}
		result = vectors
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// embedEach embeds every text independently with bounded concurrency.
func (s *EmbeddingService) embedEach(ctx context.Context, model string, task search.TaskType, texts []string) ([]search.Vector, error) {
	out := make([]search.Vector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, text := range texts {
		g.Go(func() error {
			v, err := s.embedSingle(gctx, model, task, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// embedSingle embeds one text under the single-text retry policy.
func (s *EmbeddingService) embedSingle(ctx context.Context, model string, task search.TaskType, text string) (search.Vector, error) {
	req := search.NewEmbeddingRequest(model, task, s.dimension, []string{text})
	var (
		result search.Vector
		last   error
	)

	err := retry.Do(ctx, s.single.backoff(), func(ctx context.Context) error {
		vectors, err := s.embedder.Embed(ctx, req)
		if err == nil {
			err = s.validate(vectors, 1)
		}
		if err != nil {
			if errors.Is(err, search.ErrDimensionMismatch) {
				return err
			}
			last = err
			return retry.RetryableError(err)
		}
		result = vectors[0]
		return nil
	})
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, search.ErrDimensionMismatch):
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		if last == nil {
			last = err
		}
		return nil, search.NewUnavailableError(last)
	}
}

func (s *EmbeddingService) validate(vectors []search.Vector, want int) error {
	if len(vectors) != want {
		return fmt.Errorf("embedding count mismatch: sent %d, got %d", want, len(vectors))
	}
	for _, v := range vectors {
		if err := search.CheckDimension(v, s.dimension); err != nil {
			return err
		}
	}
	return nil
}
