package persistence_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/repository"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/infrastructure/persistence"
	"github.com/helixml/openflights/internal/database"
	"github.com/helixml/openflights/internal/testdb"
)

func intPtr(n int) *int { return &n }

func airports() []flight.Airport {
	return []flight.Airport{
		flight.NewAirport(1, flight.AirportParams{Name: "Narita International Airport", City: "Tokyo", Country: "Japan", IATA: "NRT", TZ: "Asia/Tokyo"}),
		flight.NewAirport(2, flight.AirportParams{Name: "Charles de Gaulle", City: "Paris", Country: "France", IATA: "CDG", TZ: "Europe/Paris"}),
		flight.NewAirport(3, flight.AirportParams{Name: "Incheon International Airport", City: "Seoul", Country: "South Korea", IATA: "ICN", TZ: "Asia/Seoul"}),
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := testdb.New(t)
	require.NoError(t, persistence.Migrate(context.Background(), db, testdb.Dimension, nil))
}

func TestMigrate_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store := persistence.NewEntityStore(db)
	require.NoError(t, store.SaveAirports(ctx, airports()[:1]))
	emb := persistence.NewEmbeddingStore(db, nil)
	require.NoError(t, emb.Upsert(ctx, flight.KindAirport, []search.Embedding{
		search.NewEmbedding(1, "NRT", search.Vector{1, 0, 0, 0}),
	}))

	err := persistence.Migrate(ctx, db, 8, nil)
	require.ErrorIs(t, err, search.ErrDimensionMismatch)

	var dm *search.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 8, dm.Expected())
	assert.Equal(t, testdb.Dimension, dm.Got())
}

func TestMigrate_EmptyTableTakesNewDimension(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store := persistence.NewEntityStore(db)
	require.NoError(t, store.SaveAirports(ctx, airports()[:1]))

	require.NoError(t, persistence.Migrate(ctx, db, 8, nil))

	emb := persistence.NewEmbeddingStore(db, nil)
	require.NoError(t, emb.Upsert(ctx, flight.KindAirport, []search.Embedding{
		search.NewEmbedding(1, "NRT", search.Vector{1, 0, 0, 0, 0, 0, 0, 0}),
	}))
	v, err := emb.Vector(ctx, flight.KindAirport, 1)
	require.NoError(t, err)
	assert.Len(t, v, 8)
}

func TestMigrate_PostgresRecreatesEmptyTable(t *testing.T) {
	url := os.Getenv("OPENFLIGHTS_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("OPENFLIGHTS_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	drop := func() {
		for _, kind := range flight.Kinds() {
			require.NoError(t, db.Session(ctx).Exec("DROP TABLE IF EXISTS "+kind.EmbeddingTable()).Error)
		}
	}
	drop()
	t.Cleanup(drop)

	require.NoError(t, persistence.Migrate(ctx, db, 4, nil))
	require.NoError(t, persistence.Migrate(ctx, db, 8, nil))

	store := persistence.NewEntityStore(db)
	require.NoError(t, store.SaveAirports(ctx, airports()[:1]))
	emb := persistence.NewEmbeddingStore(db, nil)
	require.NoError(t, emb.Upsert(ctx, flight.KindAirport, []search.Embedding{
		search.NewEmbedding(1, "NRT", search.Vector{1, 0, 0, 0, 0, 0, 0, 0}),
	}))

	err = persistence.Migrate(ctx, db, 4, nil)
	require.ErrorIs(t, err, search.ErrDimensionMismatch)
}

func TestEntityStore_SaveAirports_Upserts(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewEntityStore(testdb.New(t))

	require.NoError(t, store.SaveAirports(ctx, airports()))
	renamed := flight.NewAirport(2, flight.AirportParams{Name: "Paris CDG", City: "Paris", Country: "France", TZ: "Europe/Paris"})
	require.NoError(t, store.SaveAirports(ctx, []flight.Airport{renamed}))

	n, err := store.Count(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	found, err := store.Airports(ctx, repository.WithCondition("airport_id", 2))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Paris CDG", found[0].Name())
	assert.Empty(t, found[0].IATA())
}

func TestEntityStore_SaveAirlines(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewEntityStore(testdb.New(t))

	require.NoError(t, store.SaveAirlines(ctx, []flight.Airline{
		flight.NewAirline(10, flight.AirlineParams{Name: "Japan Airlines", IATA: "JL", Country: "Japan", Active: "Y"}),
		flight.NewAirline(11, flight.AirlineParams{Name: "Air France", IATA: "AF", Country: "France", Active: "Y"}),
	}))

	found, err := store.Airlines(ctx, repository.WithCountry("Japan"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "JL", found[0].IATA())
}

func TestEntityStore_SaveRoutes_KeepsIDs(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewEntityStore(testdb.New(t))

	first := []flight.Route{
		flight.NewRoute(0, flight.RouteParams{Airline: "ba", Src: "LHR", Dst: "JFK", Stops: intPtr(0), Equipment: "744"}),
		flight.NewRoute(0, flight.RouteParams{Airline: "JL", Src: "NRT", Dst: "CDG", Stops: intPtr(0)}),
	}
	require.NoError(t, store.SaveRoutes(ctx, first))

	before, err := store.Routes(ctx, repository.WithOrderAsc("id"))
	require.NoError(t, err)
	require.Len(t, before, 2)

	airlineID := int64(1355)
	again := []flight.Route{
		flight.NewRoute(0, flight.RouteParams{Airline: "BA", AirlineID: &airlineID, Src: "lhr", Dst: "jfk", Stops: intPtr(0), Equipment: "744"}),
		flight.NewRoute(0, flight.RouteParams{Airline: "AF", Src: "CDG", Dst: "NRT", Stops: intPtr(1)}),
	}
	require.NoError(t, store.SaveRoutes(ctx, again))

	after, err := store.Routes(ctx, repository.WithOrderAsc("id"))
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, before[0].ID(), after[0].ID())
	require.NotNil(t, after[0].AirlineID())
	assert.Equal(t, airlineID, *after[0].AirlineID())
	assert.Equal(t, "ba", after[0].Airline())
}

func TestEntityStore_Unindexed(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store := persistence.NewEntityStore(db)
	emb := persistence.NewEmbeddingStore(db, nil)
	require.NoError(t, store.SaveAirports(ctx, airports()))

	got, err := store.Unindexed(ctx, flight.KindAirport, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].ID())

	require.NoError(t, emb.Upsert(ctx, flight.KindAirport, []search.Embedding{
		search.NewEmbedding(1, "NRT", search.Vector{1, 0, 0, 0}),
	}))

	got, err = store.Unindexed(ctx, flight.KindAirport, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID())

	got, err = store.Unindexed(ctx, flight.KindAirport, 0, repository.WithTZPrefix("Asia/"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID())

	got, err = store.Unindexed(ctx, flight.KindAirport, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID())

	got, err = store.Unindexed(ctx, flight.KindAirport, 0, repository.WithLimit(1))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, ok := got[0].(flight.Airport)
	assert.True(t, ok)
}

func TestEntityStore_UnindexedRoutes(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store := persistence.NewEntityStore(db)
	require.NoError(t, store.SaveRoutes(ctx, []flight.Route{
		flight.NewRoute(0, flight.RouteParams{Airline: "BA", Src: "LHR", Dst: "JFK", Stops: intPtr(0)}),
	}))

	got, err := store.Unindexed(ctx, flight.KindRoute, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	route, ok := got[0].(flight.Route)
	require.True(t, ok)
	assert.Equal(t, "LHR", route.Src())
	assert.True(t, route.StopsKnown())
}

func TestEntityStore_RecordsIncludesEmbedded(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store := persistence.NewEntityStore(db)
	emb := persistence.NewEmbeddingStore(db, nil)
	require.NoError(t, store.SaveAirports(ctx, airports()))
	require.NoError(t, emb.Upsert(ctx, flight.KindAirport, []search.Embedding{
		search.NewEmbedding(1, "NRT", search.Vector{1, 0, 0, 0}),
	}))

	got, err := store.Records(ctx, flight.KindAirport, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].ID())

	got, err = store.Records(ctx, flight.KindAirport, 1, repository.WithLimit(1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID())

	got, err = store.Records(ctx, flight.KindAirport, 0, repository.WithTZPrefix("Asia/"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID())
	assert.Equal(t, int64(3), got[1].ID())
}

func TestEmbeddingStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store := persistence.NewEntityStore(db)
	emb := persistence.NewEmbeddingStore(db, nil)
	require.NoError(t, store.SaveAirports(ctx, airports()))

	require.NoError(t, emb.Upsert(ctx, flight.KindAirport, []search.Embedding{
		search.NewEmbedding(1, "old", search.Vector{1, 0, 0, 0}),
		search.NewEmbedding(2, "paris", search.Vector{0, 1, 0, 0}),
	}))
	require.NoError(t, emb.Upsert(ctx, flight.KindAirport, []search.Embedding{
		search.NewEmbedding(1, "new", search.Vector{0, 0, 1, 0}),
	}))

	n, err := emb.Count(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	v, err := emb.Vector(ctx, flight.KindAirport, 1)
	require.NoError(t, err)
	assert.Equal(t, search.Vector{0, 0, 1, 0}, v)

	desc, err := emb.Description(ctx, flight.KindAirport, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", desc)

	_, err = emb.Vector(ctx, flight.KindAirport, 99)
	require.ErrorIs(t, err, search.ErrNotFound)
}
