package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/infrastructure/dataset"
)

// LoadResult counts what a Loader stored.
type LoadResult struct {
	Airports        int
	Airlines        int
	Routes          int
	DuplicateRoutes int
	SkippedRows     int
}

// Loader upserts OpenFlights datasets into the entity tables.
type Loader struct {
	entities flight.Store
	logger   *slog.Logger
}

// NewLoader creates a new Loader.
func NewLoader(entities flight.Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{entities: entities, logger: logger}
}

// LoadDir reads airports.dat, airlines.dat and routes.dat from dir and
// upserts them. When dumpDir is not empty the airport and airline
// descriptions are written there as CSV.
func (l *Loader) LoadDir(ctx context.Context, dir, dumpDir string) (LoadResult, error) {
	files, err := dataset.ReadDir(dir)
	if err != nil {
		return LoadResult{}, err
	}
	result, err := l.Load(ctx, files.Airports, files.Airlines, files.Routes)
	result.SkippedRows = files.AirportsStats.Skipped + files.AirlinesStats.Skipped + files.RoutesStats.Skipped
	if err != nil {
		return result, err
	}
	if result.SkippedRows > 0 {
		l.logger.Warn("skipped rows without a numeric id", slog.Int("rows", result.SkippedRows))
	}
	if dumpDir != "" {
		if err := dataset.DumpDescriptions(dumpDir, files.Airports, files.Airlines); err != nil {
			return result, err
		}
		l.logger.Info("wrote description dumps", slog.String("dir", dumpDir))
	}
	return result, nil
}

// Load upserts airports and airlines by id, then routes by route key after
// collapsing duplicates within the input.
func (l *Loader) Load(ctx context.Context, airports []flight.Airport, airlines []flight.Airline, routes []flight.Route) (LoadResult, error) {
	var result LoadResult

	if err := l.entities.SaveAirports(ctx, airports); err != nil {
		return result, fmt.Errorf("load airports: %w", err)
	}
	result.Airports = len(airports)
	l.logger.Info("loaded airports", slog.Int("rows", result.Airports))

	if err := l.entities.SaveAirlines(ctx, airlines); err != nil {
		return result, fmt.Errorf("load airlines: %w", err)
	}
	result.Airlines = len(airlines)
	l.logger.Info("loaded airlines", slog.Int("rows", result.Airlines))

	kept, removed := flight.DedupeRoutes(routes)
	result.DuplicateRoutes = removed
	if removed > 0 {
		l.logger.Info("collapsed duplicate routes", slog.Int("removed", removed))
	}
	if err := l.entities.SaveRoutes(ctx, kept); err != nil {
		return result, fmt.Errorf("load routes: %w", err)
	}
	result.Routes = len(kept)
	l.logger.Info("loaded routes", slog.Int("rows", result.Routes))

	return result, nil
}
