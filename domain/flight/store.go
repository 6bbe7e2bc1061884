package flight

import (
	"context"

	"github.com/helixml/openflights/domain/repository"
)

// Store reads and writes the relational entity tables.
type Store interface {
	// SaveAirports upserts airports by airport_id.
	SaveAirports(ctx context.Context, airports []Airport) error

	// SaveAirlines upserts airlines by airline_id.
	SaveAirlines(ctx context.Context, airlines []Airline) error

	// SaveRoutes upserts routes by route key, keeping existing ids.
	SaveRoutes(ctx context.Context, routes []Route) error

	// Unindexed returns entities of kind with an id greater than after that
	// have no embedding row yet, ordered by id.
	Unindexed(ctx context.Context, kind Kind, after int64, options ...repository.Option) ([]Record, error)

	// Records returns entities of kind with an id greater than after,
	// embedded or not, ordered by id.
	Records(ctx context.Context, kind Kind, after int64, options ...repository.Option) ([]Record, error)

	// Count returns the number of entities of kind.
	Count(ctx context.Context, kind Kind) (int64, error)
}
