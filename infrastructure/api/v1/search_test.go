package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/infrastructure/api/jsonapi"
	"github.com/helixml/openflights/infrastructure/api/v1/dto"
)

type fakeSearcher struct {
	query         search.Query
	airportFilter search.AirportFilter
	airlineFilter search.AirlineFilter
	routeFilter   search.RouteFilter
	k             int
	calls         int
	vectors       map[int64]string
	err           error
}

func (f *fakeSearcher) SimilarAirports(_ context.Context, q search.Query, filter search.AirportFilter, k int) ([]search.AirportMatch, error) {
	f.calls++
	f.query, f.airportFilter, f.k = q, filter, k
	if f.err != nil {
		return nil, f.err
	}
	return []search.AirportMatch{{AirportID: 2279, Name: "Narita International Airport", IATA: "NRT", TZ: "Asia/Tokyo", Score: 0}}, nil
}

func (f *fakeSearcher) SimilarAirlines(_ context.Context, q search.Query, filter search.AirlineFilter, k int) ([]search.AirlineMatch, error) {
	f.calls++
	f.query, f.airlineFilter, f.k = q, filter, k
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeSearcher) SimilarRoutes(_ context.Context, q search.Query, filter search.RouteFilter, k int) ([]search.RouteMatch, error) {
	f.calls++
	f.query, f.routeFilter, f.k = q, filter, k
	if f.err != nil {
		return nil, f.err
	}
	return []search.RouteMatch{{ID: 1, Airline: "BA", Src: "LHR", Dst: "NRT", Stops: 0, Score: 0.25}}, nil
}

func (f *fakeSearcher) StoredVector(_ context.Context, _ flight.Kind, id int64) (string, error) {
	v, ok := f.vectors[id]
	if !ok {
		return "", search.ErrNotFound
	}
	return v, nil
}

func (f *fakeSearcher) DefaultLimit() int { return 25 }

func serve(t *testing.T, searcher Searcher, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	NewSearchRouter(searcher, nil).Mount(router)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var doc jsonapi.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.Errors, 1)
	return doc.Errors[0].Detail
}

func TestSimilarAirports(t *testing.T) {
	searcher := &fakeSearcher{}
	w := serve(t, searcher, "/similar-airports?query_vec=%5B1,0%5D&tz_prefix=Asia/&k=7")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rows []dto.AirportRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "NRT", rows[0].IATA)

	assert.Equal(t, "[1,0]", searcher.query.VectorText())
	assert.Equal(t, "Asia/%", searcher.airportFilter.TZPattern())
	assert.Equal(t, 7, searcher.k)
}

func TestSimilarAirports_Limit(t *testing.T) {
	tests := map[string]int{
		"":        25,
		"k=0":     1,
		"k=500":   200,
		"k=abc":   25,
		"k=%2012": 12,
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			searcher := &fakeSearcher{}
			w := serve(t, searcher, "/similar-airports?query_text=x&"+raw)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, want, searcher.k)
		})
	}
}

func TestSimilarAirlines_EmptyResultIsArray(t *testing.T) {
	searcher := &fakeSearcher{}
	w := serve(t, searcher, "/similar-airlines?query_text=flag+carrier&country=%20Japan%20&force_multilingual=true")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, "Japan", searcher.airlineFilter.Country())
	assert.True(t, searcher.query.ForceMultilingual())
	assert.Equal(t, "flag carrier", searcher.query.Text())
}

func TestSimilarAirlines_BadBoolean(t *testing.T) {
	searcher := &fakeSearcher{}
	w := serve(t, searcher, "/similar-airlines?query_text=x&force_multilingual=maybe")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Zero(t, searcher.calls)
}

func TestSimilarRoutes(t *testing.T) {
	searcher := &fakeSearcher{}
	w := serve(t, searcher, "/similar-routes?query_vec=%5B1%5D&src=lhr&dst=%20nrt&avoid_airline=jl&stops_max=1")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rows []dto.RouteRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.InDelta(t, 0.25, rows[0].Score, 1e-9)

	assert.Equal(t, "LHR", searcher.routeFilter.Src())
	assert.Equal(t, "NRT", searcher.routeFilter.Dst())
	assert.Equal(t, "JL", searcher.routeFilter.AvoidAirline())
	stops, ok := searcher.routeFilter.StopsMax()
	assert.True(t, ok)
	assert.Equal(t, 1, stops)
}

func TestSimilarRoutes_InvalidStops(t *testing.T) {
	for _, raw := range []string{"4", "-1", "two"} {
		t.Run(raw, func(t *testing.T) {
			searcher := &fakeSearcher{}
			w := serve(t, searcher, "/similar-routes?query_vec=%5B1%5D&stops_max="+raw)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, errorDetail(t, w), "stops_max")
			assert.Zero(t, searcher.calls)
		})
	}
}

func TestSimilar_ErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"missing input", search.ErrMissingQueryInput, http.StatusUnprocessableEntity, "either query_vec or query_text is required"},
		{"unavailable", search.ErrMissingCredential, http.StatusServiceUnavailable, "provide query_vec"},
		{"search failed", search.NewSearchError(flight.KindRoute, errors.New("db gone")), http.StatusInternalServerError, "/similar-routes error: db gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, &fakeSearcher{err: tt.err}, "/similar-routes")
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, errorDetail(t, w), tt.detail)
		})
	}
}

func TestSimilarToEntity(t *testing.T) {
	searcher := &fakeSearcher{vectors: map[int64]string{2279: "[0.5,0.5]"}}

	t.Run("uses the stored vector", func(t *testing.T) {
		w := serve(t, searcher, "/airports/2279/similar?k=3&query_text=ignored")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "[0.5,0.5]", searcher.query.VectorText())
		assert.False(t, searcher.query.HasText())
		assert.Equal(t, 3, searcher.k)
	})

	t.Run("unindexed entity", func(t *testing.T) {
		w := serve(t, searcher, "/airports/1/similar")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown kind", func(t *testing.T) {
		w := serve(t, searcher, "/ships/1/similar")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := serve(t, searcher, "/airports/nrt/similar")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "id must be an integer", errorDetail(t, w))
	})
}

type fakeStatus struct{ err error }

func (f fakeStatus) Status(context.Context) ([]search.IndexStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []search.IndexStatus{
		{Kind: flight.KindAirport, Total: 3, Embedded: 1},
		{Kind: flight.KindAirline, Total: 2, Embedded: 2},
		{Kind: flight.KindRoute, Total: 0, Embedded: 0},
	}, nil
}

func TestIndexStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	NewIndexRouter(fakeStatus{}, nil).Routes().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jsonapi.ContentType, w.Header().Get("Content-Type"))

	var doc struct {
		Data []struct {
			Type       string                    `json:"type"`
			ID         string                    `json:"id"`
			Attributes dto.IndexStatusAttributes `json:"attributes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.Data, 3)
	assert.Equal(t, "index_status", doc.Data[0].Type)
	assert.Equal(t, "airports", doc.Data[0].ID)
	assert.Equal(t, dto.IndexStatusAttributes{Total: 3, Embedded: 1, Pending: 2}, doc.Data[0].Attributes)
}

func TestIndexStatus_Error(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	NewIndexRouter(fakeStatus{err: errors.New("db gone")}, nil).Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
