package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	domainservice "github.com/helixml/openflights/domain/service"
	"github.com/helixml/openflights/internal/testdb"
)

// stubEmbedder returns a deterministic testdb.Dimension vector per text and
// fails any request holding a text that contains failOn.
type stubEmbedder struct {
	mu       sync.Mutex
	requests []search.EmbeddingRequest
	failOn   string
}

func (s *stubEmbedder) Embed(_ context.Context, req search.EmbeddingRequest) ([]search.Vector, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	out := make([]search.Vector, 0, len(req.Texts()))
	for _, text := range req.Texts() {
		if s.failOn != "" && strings.Contains(text, s.failOn) {
			return nil, fmt.Errorf("upstream rejected %q", text)
		}
		out = append(out, search.Vector{1, float32(len(text) % 5), 0, 0})
	}
	return out, nil
}

func (s *stubEmbedder) Requests() []search.EmbeddingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]search.EmbeddingRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func newEmbeddingService(t *testing.T, embedder search.Embedder) *domainservice.EmbeddingService {
	t.Helper()
	fast := domainservice.NewRetryPolicy(1, time.Millisecond)
	svc, err := domainservice.NewEmbedding(embedder,
		domainservice.WithModels(domainservice.NewModels("models/text-embedding-004", "")),
		domainservice.WithDimension(testdb.Dimension),
		domainservice.WithQueryRetry(fast),
		domainservice.WithBatchRetry(fast),
	)
	require.NoError(t, err)
	return svc
}

func numberedAirports(n int) []flight.Airport {
	out := make([]flight.Airport, n)
	for i := range out {
		id := int64(i + 1)
		tz := "Europe/London"
		if id%2 == 0 {
			tz = "Asia/Tokyo"
		}
		out[i] = flight.NewAirport(id, flight.AirportParams{
			Name:    fmt.Sprintf("Airport %03d", id),
			City:    "City",
			Country: "Country",
			IATA:    fmt.Sprintf("A%02d", id%100),
			TZ:      tz,
			Type:    "airport",
		})
	}
	return out
}

func intPtr(n int) *int { return &n }
