package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/repository"
	"github.com/helixml/openflights/internal/database"
)

// saveBatchSize bounds rows per INSERT to stay under SQLite's variable limit.
const saveBatchSize = 200

// EntityStore implements flight.Store.
type EntityStore struct {
	db       database.Database
	airports database.Repository[flight.Airport, AirportModel]
	airlines database.Repository[flight.Airline, AirlineModel]
	routes   database.Repository[flight.Route, RouteModel]
}

// NewEntityStore creates an EntityStore.
func NewEntityStore(db database.Database) *EntityStore {
	return &EntityStore{
		db:       db,
		airports: database.NewRepository[flight.Airport, AirportModel](db, airportMapper{}, "airport"),
		airlines: database.NewRepository[flight.Airline, AirlineModel](db, airlineMapper{}, "airline"),
		routes:   database.NewRepository[flight.Route, RouteModel](db, routeMapper{}, "route"),
	}
}

// SaveAirports upserts airports, overwriting every column on conflict.
func (s *EntityStore) SaveAirports(ctx context.Context, airports []flight.Airport) error {
	if len(airports) == 0 {
		return nil
	}
	models := make([]AirportModel, len(airports))
	for i, a := range airports {
		models[i] = s.airports.Mapper().ToModel(a)
	}
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "airport_id"}},
		UpdateAll: true,
	}).CreateInBatches(models, saveBatchSize).Error
	if err != nil {
		return fmt.Errorf("save airports: %w", err)
	}
	return nil
}

// SaveAirlines upserts airlines, overwriting every column on conflict.
func (s *EntityStore) SaveAirlines(ctx context.Context, airlines []flight.Airline) error {
	if len(airlines) == 0 {
		return nil
	}
	models := make([]AirlineModel, len(airlines))
	for i, a := range airlines {
		models[i] = s.airlines.Mapper().ToModel(a)
	}
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "airline_id"}},
		UpdateAll: true,
	}).CreateInBatches(models, saveBatchSize).Error
	if err != nil {
		return fmt.Errorf("save airlines: %w", err)
	}
	return nil
}

// SaveRoutes upserts routes on route_key. Existing rows keep their id and get
// their foreign key columns refreshed. Callers should drop duplicate keys
// first; Postgres rejects a statement that touches the same key twice.
func (s *EntityStore) SaveRoutes(ctx context.Context, routes []flight.Route) error {
	if len(routes) == 0 {
		return nil
	}
	models := make([]RouteModel, len(routes))
	for i, r := range routes {
		m := s.routes.Mapper().ToModel(r)
		m.ID = 0
		models[i] = m
	}
	err := s.db.Session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "route_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"airline_id", "src_id", "dst_id"}),
	}).CreateInBatches(models, saveBatchSize).Error
	if err != nil {
		return fmt.Errorf("save routes: %w", err)
	}
	return nil
}

// Unindexed returns entities of kind after the given id with no embedding
// row, ordered by id. Options narrow the entity table (for example
// repository.WithTZPrefix) and bound the page (repository.WithLimit).
func (s *EntityStore) Unindexed(ctx context.Context, kind flight.Kind, after int64, options ...repository.Option) ([]flight.Record, error) {
	id := "a." + kind.IDColumn()
	key := "e." + kind.EmbeddingKey()
	db := s.db.Session(ctx).
		Table(kind.Plural()+" AS a").
		Select("a.*").
		Joins(fmt.Sprintf("LEFT JOIN %s e ON %s = %s", kind.EmbeddingTable(), key, id))
	options = append([]repository.Option{
		repository.WithNull(key),
		repository.WithGreater(id, after),
		repository.WithOrderAsc(id),
	}, options...)
	records, err := s.find(database.ApplyOptions(db, options...), kind)
	if err != nil {
		return nil, fmt.Errorf("unindexed %s: %w", kind.Plural(), err)
	}
	return records, nil
}

// Records returns entities of kind after the given id whether or not they
// are embedded, ordered by id.
func (s *EntityStore) Records(ctx context.Context, kind flight.Kind, after int64, options ...repository.Option) ([]flight.Record, error) {
	id := "a." + kind.IDColumn()
	db := s.db.Session(ctx).
		Table(kind.Plural() + " AS a").
		Select("a.*")
	options = append([]repository.Option{
		repository.WithGreater(id, after),
		repository.WithOrderAsc(id),
	}, options...)
	records, err := s.find(database.ApplyOptions(db, options...), kind)
	if err != nil {
		return nil, fmt.Errorf("records %s: %w", kind.Plural(), err)
	}
	return records, nil
}

func (s *EntityStore) find(db *gorm.DB, kind flight.Kind) ([]flight.Record, error) {
	switch kind {
	case flight.KindAirport:
		var models []AirportModel
		if err := db.Find(&models).Error; err != nil {
			return nil, err
		}
		return toRecords(models, s.airports.Mapper()), nil
	case flight.KindAirline:
		var models []AirlineModel
		if err := db.Find(&models).Error; err != nil {
			return nil, err
		}
		return toRecords(models, s.airlines.Mapper()), nil
	case flight.KindRoute:
		var models []RouteModel
		if err := db.Find(&models).Error; err != nil {
			return nil, err
		}
		return toRecords(models, s.routes.Mapper()), nil
	default:
		return nil, fmt.Errorf("%w: %q", flight.ErrUnknownKind, kind)
	}
}

// Count returns the number of entities of kind.
func (s *EntityStore) Count(ctx context.Context, kind flight.Kind) (int64, error) {
	switch kind {
	case flight.KindAirport:
		return s.airports.Count(ctx)
	case flight.KindAirline:
		return s.airlines.Count(ctx)
	case flight.KindRoute:
		return s.routes.Count(ctx)
	default:
		return 0, fmt.Errorf("%w: %q", flight.ErrUnknownKind, kind)
	}
}

// Airports returns airports matching options.
func (s *EntityStore) Airports(ctx context.Context, options ...repository.Option) ([]flight.Airport, error) {
	return s.airports.Find(ctx, options...)
}

// Airlines returns airlines matching options.
func (s *EntityStore) Airlines(ctx context.Context, options ...repository.Option) ([]flight.Airline, error) {
	return s.airlines.Find(ctx, options...)
}

// Routes returns routes matching options.
func (s *EntityStore) Routes(ctx context.Context, options ...repository.Option) ([]flight.Route, error) {
	return s.routes.Find(ctx, options...)
}

func toRecords[D flight.Record, E any](models []E, mapper database.EntityMapper[D, E]) []flight.Record {
	out := make([]flight.Record, len(models))
	for i, m := range models {
		out[i] = mapper.ToDomain(m)
	}
	return out
}
