package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/infrastructure/dataset"
	"github.com/helixml/openflights/infrastructure/persistence"
	"github.com/helixml/openflights/internal/testdb"
)

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		dataset.AirportsFile: `507,"London Heathrow Airport","London","United Kingdom","LHR","EGLL",51.4706,-0.461941,83,0,"E","Europe/London","airport","OurAirports"
2279,"Narita International Airport","Tokyo","Japan","NRT","RJAA",35.764702,140.386002,141,9,"U","Asia/Tokyo","airport","OurAirports"
bad,"Broken","x","y",\N,\N,0,0,0,0,"U",\N,"airport","x"
`,
		dataset.AirlinesFile: `1355,"British Airways",\N,"BA","BAW","SPEEDBIRD","United Kingdom","Y"
`,
		dataset.RoutesFile: `BA,1355,LHR,507,NRT,2279,,0,777
BA,1355,LHR,507,NRT,2279,,0,777
BA,1355,NRT,2279,LHR,507,,0,777
`,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestLoader_LoadDir(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	entities := persistence.NewEntityStore(db)
	loader := NewLoader(entities, nil)
	dumpDir := filepath.Join(t.TempDir(), "dump")

	result, err := loader.LoadDir(ctx, writeDataset(t), dumpDir)
	require.NoError(t, err)
	assert.Equal(t, LoadResult{Airports: 2, Airlines: 1, Routes: 2, DuplicateRoutes: 1, SkippedRows: 1}, result)

	for _, kind := range flight.Kinds() {
		n, err := entities.Count(ctx, kind)
		require.NoError(t, err)
		assert.Positive(t, n, kind)
	}

	data, err := os.ReadFile(filepath.Join(dumpDir, dataset.AirportsDescFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2279,NRT • Narita International Airport")
}

func TestLoader_ReloadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	entities := persistence.NewEntityStore(db)
	loader := NewLoader(entities, nil)
	dir := writeDataset(t)

	_, err := loader.LoadDir(ctx, dir, "")
	require.NoError(t, err)
	before, err := entities.Routes(ctx)
	require.NoError(t, err)

	_, err = loader.LoadDir(ctx, dir, "")
	require.NoError(t, err)
	after, err := entities.Routes(ctx)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID(), after[i].ID(), "route ids survive a reload")
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	loader := NewLoader(persistence.NewEntityStore(testdb.New(t)), nil)
	_, err := loader.LoadDir(context.Background(), filepath.Join(t.TempDir(), "absent"), "")
	require.Error(t, err)
}
