package search

import (
	"context"
	"errors"

	"github.com/helixml/openflights/domain/flight"
)

// SimilarityStore executes similarity query plans against the entity and
// embedding tables. queryVector is canonical vector text.
type SimilarityStore interface {
	// SimilarAirports filters and ranks airports in a single query.
	SimilarAirports(ctx context.Context, queryVector string, filter AirportFilter, k int) ([]AirportMatch, error)

	// SimilarAirlines filters and ranks airlines in a single query.
	SimilarAirlines(ctx context.Context, queryVector string, filter AirlineFilter, k int) ([]AirlineMatch, error)

	// SimilarRoutes takes the pool nearest routes by distance alone, then
	// filters and ranks within that pool. Results are the top k within the
	// pool, not necessarily the global top k under the filter.
	SimilarRoutes(ctx context.Context, queryVector string, filter RouteFilter, k, pool int) ([]RouteMatch, error)
}

// VectorLookup reads stored embedding vectors.
type VectorLookup interface {
	Vector(ctx context.Context, kind flight.Kind, id int64) (Vector, error)
}

// IndexStatus counts entities and embedded entities of a kind.
type IndexStatus struct {
	Kind     flight.Kind
	Total    int64
	Embedded int64
}

// Pending returns the number of entities without an embedding.
func (s IndexStatus) Pending() int64 {
	return s.Total - s.Embedded
}

// Embedding is one row of an embedding table: the entity it describes, the
// description that was embedded and the resulting vector.
type Embedding struct {
	id          int64
	description string
	vector      Vector
}

// NewEmbedding creates an Embedding.
func NewEmbedding(id int64, description string, vector Vector) Embedding {
	return Embedding{id: id, description: description, vector: vector.Clone()}
}

// ID returns the entity id.
func (e Embedding) ID() int64 { return e.id }

// Description returns the embedded text.
func (e Embedding) Description() string { return e.description }

// Vector returns the embedding vector.
func (e Embedding) Vector() Vector { return e.vector.Clone() }

// EmbeddingStore persists embeddings. Upsert inserts new rows and overwrites
// description and vector of existing ones.
type EmbeddingStore interface {
	Upsert(ctx context.Context, kind flight.Kind, embeddings []Embedding) error
	Count(ctx context.Context, kind flight.Kind) (int64, error)
}

// ErrNotFound indicates the requested entity or embedding does not exist.
var ErrNotFound = errors.New("not found")
