// Package search executes similarity query plans against SQL stores.
package search

import (
	"context"
	"log/slog"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/internal/database"
)

// SimilarityStore implements search.SimilarityStore with pgvector or
// sqlite-vec cosine distance.
type SimilarityStore struct {
	db     database.Database
	logger *slog.Logger
}

// NewSimilarityStore creates a SimilarityStore.
func NewSimilarityStore(db database.Database, logger *slog.Logger) *SimilarityStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimilarityStore{db: db, logger: logger}
}

type airportRow struct {
	AirportID int64   `gorm:"column:airport_id"`
	Name      *string `gorm:"column:name"`
	City      *string `gorm:"column:city"`
	Country   *string `gorm:"column:country"`
	IATA      *string `gorm:"column:iata"`
	ICAO      *string `gorm:"column:icao"`
	TZ        *string `gorm:"column:tz"`
	Score     float64 `gorm:"column:score"`
}

type airlineRow struct {
	AirlineID int64   `gorm:"column:airline_id"`
	Name      *string `gorm:"column:name"`
	Country   *string `gorm:"column:country"`
	IATA      *string `gorm:"column:iata"`
	ICAO      *string `gorm:"column:icao"`
	Active    *string `gorm:"column:active"`
	Score     float64 `gorm:"column:score"`
}

type routeRow struct {
	ID      int64   `gorm:"column:id"`
	Airline *string `gorm:"column:airline"`
	Src     *string `gorm:"column:src"`
	Dst     *string `gorm:"column:dst"`
	Stops   *int    `gorm:"column:stops"`
	Score   float64 `gorm:"column:score"`
}

// SimilarAirports ranks airports by distance with the tz filter applied in
// the same query.
func (s *SimilarityStore) SimilarAirports(ctx context.Context, queryVector string, filter search.AirportFilter, k int) ([]search.AirportMatch, error) {
	db := s.db.Session(ctx).
		Table("airports AS a").
		Select("a.airport_id, a.name, a.city, a.country, a.iata, a.icao, a.tz, "+s.db.CosineDistance("e.emb")+" AS score", queryVector).
		Joins("JOIN airports_emb e ON e.airport_id = a.airport_id")
	if pattern := filter.TZPattern(); pattern != "" {
		db = db.Where("a.tz LIKE ?", pattern)
	}

	var rows []airportRow
	if err := db.Order("score ASC").Limit(k).Scan(&rows).Error; err != nil {
		return nil, search.NewSearchError(flight.KindAirport, err)
	}

	out := make([]search.AirportMatch, len(rows))
	for i, r := range rows {
		out[i] = search.AirportMatch{
			AirportID: r.AirportID,
			Name:      deref(r.Name),
			City:      deref(r.City),
			Country:   deref(r.Country),
			IATA:      deref(r.IATA),
			ICAO:      deref(r.ICAO),
			TZ:        deref(r.TZ),
			Score:     r.Score,
		}
	}
	return out, nil
}

// SimilarAirlines ranks airlines by distance with the country filter applied
// in the same query.
func (s *SimilarityStore) SimilarAirlines(ctx context.Context, queryVector string, filter search.AirlineFilter, k int) ([]search.AirlineMatch, error) {
	db := s.db.Session(ctx).
		Table("airlines AS a").
		Select("a.airline_id, a.name, a.country, a.iata, a.icao, a.active, "+s.db.CosineDistance("e.emb")+" AS score", queryVector).
		Joins("JOIN airlines_emb e ON e.airline_id = a.airline_id")
	if country := filter.Country(); country != "" {
		db = db.Where("a.country = ?", country)
	}

	var rows []airlineRow
	if err := db.Order("score ASC").Limit(k).Scan(&rows).Error; err != nil {
		return nil, search.NewSearchError(flight.KindAirline, err)
	}

	out := make([]search.AirlineMatch, len(rows))
	for i, r := range rows {
		out[i] = search.AirlineMatch{
			AirlineID: r.AirlineID,
			Name:      deref(r.Name),
			Country:   deref(r.Country),
			IATA:      deref(r.IATA),
			ICAO:      deref(r.ICAO),
			Active:    deref(r.Active),
			Score:     r.Score,
		}
	}
	return out, nil
}

// SimilarRoutes selects the pool nearest routes by distance alone, then
// applies the filters to that candidate set and keeps the best k.
func (s *SimilarityStore) SimilarRoutes(ctx context.Context, queryVector string, filter search.RouteFilter, k, pool int) ([]search.RouteMatch, error) {
	if pool < k {
		pool = k
	}
	session := s.db.Session(ctx)
	candidates := session.
		Table("routes AS r").
		Select("r.id, r.airline, r.src, r.dst, r.stops, "+s.db.CosineDistance("re.emb")+" AS score", queryVector).
		Joins("JOIN routes_emb re ON re.route_id = r.id").
		Order("score ASC").
		Limit(pool)

	db := session.Table("(?) AS t", candidates).Select("t.id, t.airline, t.src, t.dst, t.stops, t.score")
	if src := filter.Src(); src != "" {
		db = db.Where("t.src = ?", src)
	}
	if dst := filter.Dst(); dst != "" {
		db = db.Where("t.dst = ?", dst)
	}
	if most, ok := filter.StopsMax(); ok {
		db = db.Where("t.stops <= ?", most)
	}
	if avoid := filter.AvoidAirline(); avoid != "" {
		db = db.Where("t.airline <> ?", avoid)
	}

	var rows []routeRow
	if err := db.Order("t.score ASC").Limit(k).Scan(&rows).Error; err != nil {
		return nil, search.NewSearchError(flight.KindRoute, err)
	}

	out := make([]search.RouteMatch, len(rows))
	for i, r := range rows {
		stops := 0
		if r.Stops != nil {
			stops = *r.Stops
		}
		out[i] = search.RouteMatch{
			ID:      r.ID,
			Airline: deref(r.Airline),
			Src:     deref(r.Src),
			Dst:     deref(r.Dst),
			Stops:   stops,
			Score:   r.Score,
		}
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
