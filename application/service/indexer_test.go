package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/infrastructure/persistence"
	"github.com/helixml/openflights/internal/testdb"
)

type indexFixture struct {
	indexer    *Indexer
	embedder   *stubEmbedder
	entities   *persistence.EntityStore
	embeddings *persistence.EmbeddingStore
}

func newIndexFixture(t *testing.T, airports []flight.Airport, opts ...IndexerOption) indexFixture {
	t.Helper()
	db := testdb.New(t)
	entities := persistence.NewEntityStore(db)
	embeddings := persistence.NewEmbeddingStore(db, nil)
	require.NoError(t, entities.SaveAirports(context.Background(), airports))

	embedder := &stubEmbedder{}
	indexer, err := NewIndexer(entities, embeddings, newEmbeddingService(t, embedder), opts...)
	require.NoError(t, err)
	return indexFixture{indexer: indexer, embedder: embedder, entities: entities, embeddings: embeddings}
}

func TestClampBatchSize(t *testing.T) {
	assert.Equal(t, 16, ClampBatchSize(1))
	assert.Equal(t, 128, ClampBatchSize(128))
	assert.Equal(t, 512, ClampBatchSize(4096))
}

func TestNewIndexRun_PageAtLeastBatch(t *testing.T) {
	r := newIndexRun(WithBatchSize(64), WithPageSize(10))
	assert.Equal(t, 64, r.batch)
	assert.Equal(t, 64, r.page)

	r = newIndexRun()
	assert.Equal(t, DefaultBatchSize, r.batch)
	assert.Equal(t, DefaultPageSize, r.page)
}

func TestIndexer_RunEmbedsEverything(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(40))

	result, err := f.indexer.Run(ctx, flight.KindAirport, WithBatchSize(16), WithPageSize(16))
	require.NoError(t, err)
	assert.Equal(t, 40, result.Indexed)
	assert.Equal(t, 3, result.Pages)

	n, err := f.embeddings.Count(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, int64(40), n)

	for _, req := range f.embedder.Requests() {
		assert.Equal(t, search.TaskRetrievalDocument, req.Task())
		assert.LessOrEqual(t, len(req.Texts()), 16)
	}

	desc, err := f.embeddings.Description(ctx, flight.KindAirport, 7)
	require.NoError(t, err)
	assert.Contains(t, desc, "Airport 007")
}

func TestIndexer_RunIsRestartable(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(20))

	first, err := f.indexer.Run(ctx, flight.KindAirport, WithRowLimit(5))
	require.NoError(t, err)
	assert.Equal(t, 5, first.Indexed)

	second, err := f.indexer.Run(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, 15, second.Indexed)

	requests := len(f.embedder.Requests())
	third, err := f.indexer.Run(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Zero(t, third.Indexed)
	assert.Len(t, f.embedder.Requests(), requests, "nothing is re-embedded")
}

func TestIndexer_ForceRefreshesChangedDescriptions(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(3))

	_, err := f.indexer.Run(ctx, flight.KindAirport)
	require.NoError(t, err)

	renamed := flight.NewAirport(2, flight.AirportParams{Name: "Renamed Field", City: "City", Country: "Country", IATA: "A02", TZ: "Asia/Tokyo", Type: "airport"})
	require.NoError(t, f.entities.SaveAirports(ctx, []flight.Airport{renamed}))

	plain, err := f.indexer.Run(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Zero(t, plain.Indexed)

	desc, err := f.embeddings.Description(ctx, flight.KindAirport, 2)
	require.NoError(t, err)
	assert.Contains(t, desc, "Airport 002")

	forced, err := f.indexer.Run(ctx, flight.KindAirport, WithForce())
	require.NoError(t, err)
	assert.Equal(t, 3, forced.Indexed)

	desc, err = f.embeddings.Description(ctx, flight.KindAirport, 2)
	require.NoError(t, err)
	assert.Equal(t, flight.Describe(renamed), desc)

	n, err := f.embeddings.Count(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestIndexer_ForceHonoursTZFilter(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(6))

	_, err := f.indexer.Run(ctx, flight.KindAirport)
	require.NoError(t, err)

	result, err := f.indexer.Run(ctx, flight.KindAirport, WithForce(), WithTZFilter("Asia/"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Indexed)
}

func TestIndexer_StopsAtFirstFailedChunk(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(40))
	f.embedder.failOn = "Airport 020"

	result, err := f.indexer.Run(ctx, flight.KindAirport, WithBatchSize(16))
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrEmbeddingUnavailable)
	assert.Equal(t, 16, result.Indexed)

	statuses, err := f.indexer.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, flight.KindAirport, statuses[0].Kind)
	assert.Equal(t, int64(40), statuses[0].Total)
	assert.Equal(t, int64(16), statuses[0].Embedded)
	assert.Equal(t, int64(24), statuses[0].Pending())
}

func TestIndexer_ConcurrentWorkersKeepEveryChunk(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(100), WithIndexWorkers(4))

	result, err := f.indexer.Run(ctx, flight.KindAirport, WithBatchSize(16))
	require.NoError(t, err)
	assert.Equal(t, 100, result.Indexed)

	n, err := f.embeddings.Count(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)
}

func TestIndexer_TZFilter(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(10))

	result, err := f.indexer.Run(ctx, flight.KindAirport, WithTZFilter("Asia/"))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Indexed)
}

func TestIndexer_SkipsBlankDescriptions(t *testing.T) {
	ctx := context.Background()
	airports := append(numberedAirports(3), flight.NewAirport(99, flight.AirportParams{}))
	f := newIndexFixture(t, airports)

	result, err := f.indexer.Run(ctx, flight.KindAirport)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Indexed)
	assert.Equal(t, 1, result.Skipped)
}

func TestIndexer_StreamHonoursLimit(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(50))

	var ids []int64
	pages := 0
	for page, err := range f.indexer.Stream(ctx, flight.KindAirport, WithBatchSize(16), WithPageSize(16), WithRowLimit(40)) {
		require.NoError(t, err)
		pages++
		for _, r := range page {
			ids = append(ids, r.ID())
		}
	}
	assert.Equal(t, 3, pages)
	require.Len(t, ids, 40)
	assert.Equal(t, int64(1), ids[0])
	assert.Equal(t, int64(40), ids[39])
}

func TestIndexer_StreamStopsWhenConsumerBreaks(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(50))

	pages := 0
	for _, err := range f.indexer.Stream(ctx, flight.KindAirport, WithBatchSize(16), WithPageSize(16)) {
		require.NoError(t, err)
		pages++
		break
	}
	assert.Equal(t, 1, pages)
}

func TestIndexer_RunAll(t *testing.T) {
	ctx := context.Background()
	f := newIndexFixture(t, numberedAirports(3))
	require.NoError(t, f.entities.SaveAirlines(ctx, []flight.Airline{
		flight.NewAirline(1, flight.AirlineParams{Name: "Qantas", IATA: "QF", Country: "Australia", Active: "Y"}),
	}))
	require.NoError(t, f.entities.SaveRoutes(ctx, []flight.Route{
		flight.NewRoute(0, flight.RouteParams{Airline: "QF", Src: "SYD", Dst: "LHR", Stops: intPtr(1)}),
	}))

	results, err := f.indexer.RunAll(ctx, flight.Kinds())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, results[0].Indexed)
	assert.Equal(t, 1, results[1].Indexed)
	assert.Equal(t, 1, results[2].Indexed)

	statuses, err := f.indexer.Status(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.Zero(t, s.Pending(), s.Kind)
	}
}
