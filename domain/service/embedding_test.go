package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/openflights/domain/search"
)

const testDim = 3

type fakeEmbedder struct {
	mu       sync.Mutex
	requests []search.EmbeddingRequest
	fn       func(call int, req search.EmbeddingRequest) ([]search.Vector, error)
}

func (f *fakeEmbedder) Embed(_ context.Context, req search.EmbeddingRequest) ([]search.Vector, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	call := len(f.requests)
	f.mu.Unlock()
	return f.fn(call, req)
}

func (f *fakeEmbedder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeEmbedder) batchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if len(r.Texts()) > 1 {
			n++
		}
	}
	return n
}

// vectorFor derives a deterministic vector from the text length.
func vectorFor(text string) search.Vector {
	return search.Vector{float32(len(text)), 0, 1}
}

func echo(_ int, req search.EmbeddingRequest) ([]search.Vector, error) {
	out := make([]search.Vector, 0, len(req.Texts()))
	for _, t := range req.Texts() {
		out = append(out, vectorFor(t))
	}
	return out, nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]search.Vector
}

func (c *mapCache) Get(_ context.Context, key string) (search.Vector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Put(_ context.Context, key string, v search.Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = v
}

func newTestService(t *testing.T, e search.Embedder, opts ...EmbeddingOption) *EmbeddingService {
	t.Helper()
	base := []EmbeddingOption{
		WithModels(NewModels("models/text-embedding-004", "models/embedding-001")),
		WithDimension(testDim),
		WithQueryRetry(NewRetryPolicy(4, time.Millisecond)),
		WithBatchRetry(NewRetryPolicy(8, time.Millisecond).WithCap(2 * time.Millisecond)),
	}
	svc, err := NewEmbedding(e, append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func TestNewEmbedding_Validation(t *testing.T) {
	_, err := NewEmbedding(&fakeEmbedder{fn: echo}, WithDimension(3))
	require.Error(t, err)

	_, err = NewEmbedding(nil, WithDimension(0))
	require.Error(t, err)

	svc, err := NewEmbedding(nil)
	require.NoError(t, err)
	assert.False(t, svc.Available())
	assert.Equal(t, 768, svc.Dimension())
}

func TestEmbedOne_Success(t *testing.T) {
	fake := &fakeEmbedder{fn: echo}
	svc := newTestService(t, fake)

	v, err := svc.EmbedOne(context.Background(), "  hub airport ", search.TaskRetrievalQuery, false)
	require.NoError(t, err)
	assert.Equal(t, vectorFor("hub airport"), v)

	require.Equal(t, 1, fake.calls())
	req := fake.requests[0]
	assert.Equal(t, "models/text-embedding-004", req.Model())
	assert.Equal(t, search.TaskRetrievalQuery, req.Task())
	assert.Equal(t, testDim, req.Dimension())
	assert.Equal(t, []string{"hub airport"}, req.Texts())
}

func TestEmbedOne_NonASCIIUsesMultilingual(t *testing.T) {
	fake := &fakeEmbedder{fn: echo}
	svc := newTestService(t, fake)

	_, err := svc.EmbedOne(context.Background(), "aéroport", search.TaskRetrievalQuery, false)
	require.NoError(t, err)
	assert.Equal(t, "models/embedding-001", fake.requests[0].Model())
}

func TestEmbedOne_EmptyInput(t *testing.T) {
	fake := &fakeEmbedder{fn: echo}
	svc := newTestService(t, fake)

	_, err := svc.EmbedOne(context.Background(), "   ", search.TaskRetrievalQuery, false)
	require.ErrorIs(t, err, search.ErrEmptyInput)
	assert.Zero(t, fake.calls())
}

func TestEmbedOne_MissingCredential(t *testing.T) {
	svc, err := NewEmbedding(nil, WithDimension(testDim))
	require.NoError(t, err)

	_, err = svc.EmbedOne(context.Background(), "anything", search.TaskRetrievalQuery, false)
	require.ErrorIs(t, err, search.ErrMissingCredential)
	assert.ErrorIs(t, err, search.ErrEmbeddingUnavailable)
}

func TestEmbedOne_RetriesThenSucceeds(t *testing.T) {
	fake := &fakeEmbedder{fn: func(call int, req search.EmbeddingRequest) ([]search.Vector, error) {
		if call < 3 {
			return nil, errors.New("503 unavailable")
		}
		return echo(call, req)
	}}
	svc := newTestService(t, fake)

	v, err := svc.EmbedOne(context.Background(), "x", search.TaskRetrievalDocument, false)
	require.NoError(t, err)
	assert.Equal(t, vectorFor("x"), v)
	assert.Equal(t, 3, fake.calls())
}

func TestEmbedOne_ExhaustsAttempts(t *testing.T) {
	fake := &fakeEmbedder{fn: func(int, search.EmbeddingRequest) ([]search.Vector, error) {
		return nil, errors.New("quota exceeded")
	}}
	svc := newTestService(t, fake)

	_, err := svc.EmbedOne(context.Background(), "x", search.TaskRetrievalQuery, false)
	require.ErrorIs(t, err, search.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 4, fake.calls())
}

func TestEmbedOne_DimensionMismatchNotRetried(t *testing.T) {
	fake := &fakeEmbedder{fn: func(int, search.EmbeddingRequest) ([]search.Vector, error) {
		return []search.Vector{{1, 2}}, nil
	}}
	svc := newTestService(t, fake)

	_, err := svc.EmbedOne(context.Background(), "x", search.TaskRetrievalQuery, false)
	require.ErrorIs(t, err, search.ErrDimensionMismatch)
	assert.NotErrorIs(t, err, search.ErrEmbeddingUnavailable)
	assert.Equal(t, 1, fake.calls())

	var dm *search.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, testDim, dm.Expected())
	assert.Equal(t, 2, dm.Got())
}

func TestEmbedOne_QueryCache(t *testing.T) {
	fake := &fakeEmbedder{fn: echo}
	cache := &mapCache{data: map[string]search.Vector{}}
	svc := newTestService(t, fake, WithVectorCache(cache))

	for range 3 {
		_, err := svc.EmbedOne(context.Background(), "quiet island airport", search.TaskRetrievalQuery, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fake.calls())

	_, err := svc.EmbedOne(context.Background(), "quiet island airport", search.TaskRetrievalDocument, false)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls(), "document task bypasses the cache")
}

func TestEmbedBatch_Empty(t *testing.T) {
	fake := &fakeEmbedder{fn: echo}
	svc := newTestService(t, fake)

	out, err := svc.EmbedBatch(context.Background(), nil, search.TaskRetrievalDocument)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, fake.calls())
}

func TestEmbedBatch_SingleCall(t *testing.T) {
	fake := &fakeEmbedder{fn: echo}
	svc := newTestService(t, fake)
	texts := []string{"a", "bb", "ccc", "東京"}

	out, err := svc.EmbedBatch(context.Background(), texts, search.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, out, len(texts))
	for i, text := range texts {
		assert.Equal(t, vectorFor(text), out[i])
	}
	require.Equal(t, 1, fake.calls())
	assert.Equal(t, "models/text-embedding-004", fake.requests[0].Model())
}

func TestEmbedBatch_FallsBackPerItem(t *testing.T) {
	fake := &fakeEmbedder{fn: func(call int, req search.EmbeddingRequest) ([]search.Vector, error) {
		if len(req.Texts()) > 1 {
			return nil, errors.New("batch rejected")
		}
		return echo(call, req)
	}}
	svc := newTestService(t, fake, WithFallbackParallelism(2))
	texts := []string{"one", "three", "fives", "sevennn", "x"}

	out, err := svc.EmbedBatch(context.Background(), texts, search.TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, out, len(texts))
	for i, text := range texts {
		assert.Equal(t, vectorFor(text), out[i], "order preserved at %d", i)
	}
	assert.Equal(t, 8, fake.batchCalls())
	assert.Equal(t, 8+len(texts), fake.calls())
}

func TestEmbedBatch_ShortResponseRetried(t *testing.T) {
	fake := &fakeEmbedder{fn: func(call int, req search.EmbeddingRequest) ([]search.Vector, error) {
		out, _ := echo(call, req)
		if call == 1 {
			return out[:1], nil
		}
		return out, nil
	}}
	svc := newTestService(t, fake)

	out, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"}, search.TaskRetrievalDocument)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, 2, fake.calls())
}

func TestEmbedBatch_PerItemFailureFailsWhole(t *testing.T) {
	fake := &fakeEmbedder{fn: func(call int, req search.EmbeddingRequest) ([]search.Vector, error) {
		texts := req.Texts()
		if len(texts) > 1 || strings.HasPrefix(texts[0], "bad") {
			return nil, errors.New("upstream down")
		}
		return echo(call, req)
	}}
	svc := newTestService(t, fake)

	out, err := svc.EmbedBatch(context.Background(), []string{"good", "bad one", "fine"}, search.TaskRetrievalDocument)
	require.ErrorIs(t, err, search.ErrEmbeddingUnavailable)
	assert.Nil(t, out)
}

func TestEmbedBatch_DimensionMismatchSkipsFallback(t *testing.T) {
	fake := &fakeEmbedder{fn: func(_ int, req search.EmbeddingRequest) ([]search.Vector, error) {
		out := make([]search.Vector, len(req.Texts()))
		for i := range out {
			out[i] = search.Vector{1, 2, 3, 4}
		}
		return out, nil
	}}
	svc := newTestService(t, fake)

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"}, search.TaskRetrievalDocument)
	require.ErrorIs(t, err, search.ErrDimensionMismatch)
	assert.Equal(t, 1, fake.calls())
}

func TestEmbedBatch_BlankTextRejected(t *testing.T) {
	fake := &fakeEmbedder{fn: echo}
	svc := newTestService(t, fake)

	_, err := svc.EmbedBatch(context.Background(), []string{"a", " "}, search.TaskRetrievalDocument)
	require.ErrorIs(t, err, search.ErrEmptyInput)
	assert.Zero(t, fake.calls())
}

func TestEmbedBatch_CancelledContext(t *testing.T) {
	fake := &fakeEmbedder{fn: func(int, search.EmbeddingRequest) ([]search.Vector, error) {
		return nil, errors.New("slow")
	}}
	svc := newTestService(t, fake, WithBatchRetry(NewRetryPolicy(8, time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := svc.EmbedBatch(ctx, []string{"a", "b"}, search.TaskRetrievalDocument)
	require.Error(t, err)
	assert.Equal(t, 1, fake.calls())
}
