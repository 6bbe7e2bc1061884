// Package service provides application layer services that orchestrate domain operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	domainservice "github.com/helixml/openflights/domain/service"
)

// DefaultCandidatePool is how many nearest routes are considered before
// route filters apply.
const DefaultCandidatePool = 2000

// SearchOption configures a Search service.
type SearchOption func(*Search)

// WithCandidatePool sets the route candidate pool size.
func WithCandidatePool(n int) SearchOption {
	return func(s *Search) {
		if n > 0 {
			s.pool = n
		}
	}
}

// WithDefaultLimit sets the k reported by DefaultLimit.
func WithDefaultLimit(k int) SearchOption {
	return func(s *Search) {
		if k > 0 {
			s.defaultLimit = search.ClampLimit(k)
		}
	}
}

// WithVectorLookup enables searches seeded by a stored entity vector.
func WithVectorLookup(v search.VectorLookup) SearchOption {
	return func(s *Search) { s.vectors = v }
}

// WithClosedFlag shares the owning client's closed state.
func WithClosedFlag(closed *atomic.Bool) SearchOption {
	return func(s *Search) { s.closed = closed }
}

// WithSearchLogger sets the logger.
func WithSearchLogger(l *slog.Logger) SearchOption {
	return func(s *Search) {
		if l != nil {
			s.logger = l
		}
	}
}

// Search resolves query vectors and runs similarity queries per entity kind.
// It holds no per-request state; concurrent calls are independent.
type Search struct {
	embedding    *domainservice.EmbeddingService
	store        search.SimilarityStore
	vectors      search.VectorLookup
	pool         int
	defaultLimit int
	closed       *atomic.Bool
	logger       *slog.Logger
}

// NewSearch creates a new Search service.
func NewSearch(embedding *domainservice.EmbeddingService, store search.SimilarityStore, opts ...SearchOption) (*Search, error) {
	if embedding == nil {
		return nil, fmt.Errorf("NewSearch: nil embedding service")
	}
	if store == nil {
		return nil, fmt.Errorf("NewSearch: nil store")
	}
	s := &Search{
		embedding:    embedding,
		store:        store,
		pool:         DefaultCandidatePool,
		defaultLimit: search.DefaultLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dimension returns the vector dimension queries must match.
func (s *Search) Dimension() int { return s.embedding.Dimension() }

// DefaultLimit returns k for callers that were given none, such as an HTTP
// request without a k parameter.
func (s *Search) DefaultLimit() int { return s.defaultLimit }

// CandidatePool returns the route candidate pool size.
func (s *Search) CandidatePool() int { return s.pool }

// TextAvailable reports whether text queries can be embedded.
func (s *Search) TextAvailable() bool { return s.embedding.Available() }

// ResolveQueryVector returns the canonical vector text for a query.
//
// A supplied vector wins and is validated and re-encoded; when it is malformed
// the text is not tried. Otherwise the text is embedded as a retrieval query;
// a provider vector of the wrong length fails with
// search.ErrProviderMisconfigured. With neither, it fails with search.ErrMissingQueryInput.
func (s *Search) ResolveQueryVector(ctx context.Context, q search.Query) (string, error) {
	if s.closed != nil && s.closed.Load() {
		return "", ErrClientClosed
	}
	switch {
	case q.HasVector():
		return search.SanitizeVector(q.VectorText(), s.embedding.Dimension())
	case q.HasText():
		v, err := s.embedding.EmbedOne(ctx, q.Text(), search.TaskRetrievalQuery, q.ForceMultilingual())
		if err == nil {
			err = search.CheckDimension(v, s.embedding.Dimension())
		}
		if errors.Is(err, search.ErrDimensionMismatch) {
			return "", fmt.Errorf("%w: %w", search.ErrProviderMisconfigured, err)
		}
		if err != nil {
			return "", err
		}
		return search.EncodeVector(v), nil
	default:
		return "", search.ErrMissingQueryInput
	}
}

// SimilarAirports returns the k airports nearest to the query, optionally
// restricted to a timezone prefix.
func (s *Search) SimilarAirports(ctx context.Context, q search.Query, filter search.AirportFilter, k int) ([]search.AirportMatch, error) {
	qv, err := s.ResolveQueryVector(ctx, q)
	if err != nil {
		return nil, err
	}
	k = s.limit(k)
	matches, err := s.store.SimilarAirports(ctx, qv, filter, k)
	if err != nil {
		return nil, s.searchError(flight.KindAirport, err)
	}
	s.logger.DebugContext(ctx, "similar airports", slog.Int("k", k), slog.Int("results", len(matches)), slog.String("tz_prefix", filter.TZPrefix()))
	return matches, nil
}

// SimilarAirlines returns the k airlines nearest to the query, optionally
// restricted to a country.
func (s *Search) SimilarAirlines(ctx context.Context, q search.Query, filter search.AirlineFilter, k int) ([]search.AirlineMatch, error) {
	qv, err := s.ResolveQueryVector(ctx, q)
	if err != nil {
		return nil, err
	}
	k = s.limit(k)
	matches, err := s.store.SimilarAirlines(ctx, qv, filter, k)
	if err != nil {
		return nil, s.searchError(flight.KindAirline, err)
	}
	s.logger.DebugContext(ctx, "similar airlines", slog.Int("k", k), slog.Int("results", len(matches)), slog.String("country", filter.Country()))
	return matches, nil
}

// SimilarRoutes returns up to k routes ranked within the candidate pool of
// nearest routes. Filters apply after the pool is taken, so fewer than k rows
// may come back even when more matching routes exist.
func (s *Search) SimilarRoutes(ctx context.Context, q search.Query, filter search.RouteFilter, k int) ([]search.RouteMatch, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	qv, err := s.ResolveQueryVector(ctx, q)
	if err != nil {
		return nil, err
	}
	k = s.limit(k)
	pool := max(s.pool, k)
	matches, err := s.store.SimilarRoutes(ctx, qv, filter, k, pool)
	if err != nil {
		return nil, s.searchError(flight.KindRoute, err)
	}
	s.logger.DebugContext(ctx, "similar routes", slog.Int("k", k), slog.Int("pool", pool), slog.Int("results", len(matches)))
	return matches, nil
}

// StoredVector returns the canonical vector text of an indexed entity, for
// use as a query vector.
func (s *Search) StoredVector(ctx context.Context, kind flight.Kind, id int64) (string, error) {
	if s.vectors == nil {
		return "", fmt.Errorf("stored vectors: %w", search.ErrNotFound)
	}
	v, err := s.vectors.Vector(ctx, kind, id)
	if err != nil {
		if errors.Is(err, search.ErrNotFound) {
			return "", err
		}
		return "", s.searchError(kind, err)
	}
	if err := search.CheckDimension(v, s.embedding.Dimension()); err != nil {
		return "", err
	}
	return search.EncodeVector(v), nil
}

// limit clamps k the same way search.ParseLimit does, so zero yields one
// result. Callers wanting the default pass DefaultLimit().
func (s *Search) limit(k int) int {
	return search.ClampLimit(k)
}

func (s *Search) searchError(kind flight.Kind, err error) error {
	var se *search.SearchError
	if errors.As(err, &se) {
		return err
	}
	return search.NewSearchError(kind, err)
}
