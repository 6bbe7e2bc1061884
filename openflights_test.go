package openflights_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/openflights"
	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
)

const testDimension = 4

const airportsDat = `2279,"Narita International Airport","Tokyo","Japan","NRT","RJAA",35.764702,140.386002,141,9,"U","Asia/Tokyo","airport","OurAirports"
507,"London Heathrow Airport","London","United Kingdom","LHR","EGLL",51.4706,-0.461941,83,0,"E","Europe/London","airport","OurAirports"
3364,"Beijing Capital International Airport","Beijing","China","PEK","ZBAA",40.080101,116.584999,116,8,"U","Asia/Shanghai","airport","OurAirports"
`

const airlinesDat = `3090,"Japan Airlines","\N","JL","JAL","JAPANAIR","Japan","Y"
1355,"British Airways","\N","BA","BAW","SPEEDBIRD","United Kingdom","Y"
`

const routesDat = `JL,3090,NRT,2279,LHR,507,,0,788
BA,1355,LHR,507,NRT,2279,,0,789
BA,1355,LHR,507,PEK,3364,,1,777
BA,1355,LHR,507,PEK,3364,,1,777
`

// countingEmbedder returns a direction per text length so different
// descriptions get different vectors.
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, req search.EmbeddingRequest) ([]search.Vector, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	out := make([]search.Vector, len(req.Texts()))
	for i, text := range req.Texts() {
		v := make(search.Vector, req.Dimension())
		v[len(text)%req.Dimension()] = 1
		out[i] = v
	}
	return out, nil
}

func (e *countingEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"airports.dat": airportsDat,
		"airlines.dat": airlinesDat,
		"routes.dat":   routesDat,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newClient(t *testing.T, opts ...openflights.Option) *openflights.Client {
	t.Helper()
	dataDir := t.TempDir()
	base := []openflights.Option{
		openflights.WithDataDir(dataDir),
		openflights.WithSQLite(filepath.Join(dataDir, "test.db")),
		openflights.WithDimension(testDimension),
	}
	client, err := openflights.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_LoadIndexSearch(t *testing.T) {
	ctx := context.Background()
	embedder := &countingEmbedder{}
	client := newClient(t, openflights.WithEmbedder(embedder))

	loaded, err := client.Loader.LoadDir(ctx, writeDataset(t), "")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Airports)
	assert.Equal(t, 2, loaded.Airlines)
	assert.Equal(t, 3, loaded.Routes)
	assert.Equal(t, 1, loaded.DuplicateRoutes)

	results, err := client.Indexer.RunAll(ctx, flight.Kinds())
	require.NoError(t, err)
	require.Len(t, results, 3)

	statuses, err := client.Indexer.Status(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.Zero(t, s.Pending(), "kind %s", s.Kind)
		assert.Positive(t, s.Total, "kind %s", s.Kind)
	}

	t.Run("vector query with timezone filter", func(t *testing.T) {
		matches, err := client.Search.SimilarAirports(ctx,
			search.NewQuery(search.WithVectorText("[1,0,0,0]")),
			search.NewAirportFilter(search.WithTZPrefix("Asia/")),
			10,
		)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		for _, m := range matches {
			assert.Contains(t, m.TZ, "Asia/")
		}
	})

	t.Run("text query", func(t *testing.T) {
		before := embedder.Calls()
		matches, err := client.Search.SimilarAirlines(ctx,
			search.NewQuery(search.WithText("flag carrier of Japan")),
			search.NewAirlineFilter(search.WithCountry("Japan")),
			0,
		)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "Japan Airlines", matches[0].Name)
		assert.Equal(t, before+1, embedder.Calls())
	})

	t.Run("repeated text query hits the cache", func(t *testing.T) {
		q := search.NewQuery(search.WithText("long haul to Beijing"))
		_, err := client.Search.SimilarRoutes(ctx, q, search.NewRouteFilter(), 5)
		require.NoError(t, err)
		before := embedder.Calls()
		_, err = client.Search.SimilarRoutes(ctx, q, search.NewRouteFilter(), 5)
		require.NoError(t, err)
		assert.Equal(t, before, embedder.Calls())
	})

	t.Run("route filters", func(t *testing.T) {
		matches, err := client.Search.SimilarRoutes(ctx,
			search.NewQuery(search.WithVectorText("[0,1,0,0]")),
			search.NewRouteFilter(search.WithSrc("lhr"), search.WithStopsMax(0)),
			10,
		)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "NRT", matches[0].Dst)
	})

	t.Run("reindex embeds nothing new", func(t *testing.T) {
		before := embedder.Calls()
		results, err := client.Indexer.RunAll(ctx, flight.Kinds())
		require.NoError(t, err)
		for _, r := range results {
			assert.Zero(t, r.Indexed)
		}
		assert.Equal(t, before, embedder.Calls())
	})

	require.NoError(t, client.Health(ctx))
}

func TestClient_WithoutCredential(t *testing.T) {
	ctx := context.Background()
	client := newClient(t, openflights.WithGemini(""))

	_, err := client.Search.SimilarAirports(ctx,
		search.NewQuery(search.WithText("tokyo")),
		search.NewAirportFilter(),
		5,
	)
	require.ErrorIs(t, err, search.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "query_vec")

	matches, err := client.Search.SimilarAirports(ctx,
		search.NewQuery(search.WithVectorText("[1,0,0,0]")),
		search.NewAirportFilter(),
		5,
	)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestClient_DimensionMismatchOnReopen(t *testing.T) {
	dataDir := t.TempDir()
	dbPath := filepath.Join(dataDir, "test.db")
	ctx := context.Background()

	first, err := openflights.New(
		openflights.WithDataDir(dataDir),
		openflights.WithSQLite(dbPath),
		openflights.WithDimension(testDimension),
		openflights.WithEmbedder(&countingEmbedder{}),
	)
	require.NoError(t, err)
	_, err = first.Loader.LoadDir(ctx, writeDataset(t), "")
	require.NoError(t, err)
	_, err = first.Indexer.Run(ctx, flight.KindAirline)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	_, err = openflights.New(
		openflights.WithDataDir(dataDir),
		openflights.WithSQLite(dbPath),
		openflights.WithDimension(8),
	)
	require.ErrorIs(t, err, search.ErrDimensionMismatch)
}

func TestClient_Close(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	client, err := openflights.New(
		openflights.WithDataDir(dataDir),
		openflights.WithDimension(testDimension),
	)
	require.NoError(t, err)
	assert.Equal(t, dataDir, client.DataDir())
	assert.Equal(t, testDimension, client.Dimension())
	assert.FileExists(t, filepath.Join(dataDir, "openflights.db"))

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Close(), openflights.ErrClientClosed)
	assert.ErrorIs(t, client.Health(ctx), openflights.ErrClientClosed)

	_, err = client.Search.ResolveQueryVector(ctx, search.NewQuery(search.WithVectorText("[1,0,0,0]")))
	assert.ErrorIs(t, err, openflights.ErrClientClosed)
}
