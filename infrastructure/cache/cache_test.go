package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/openflights/domain/search"
)

func TestLRU_GetPut(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Put(ctx, "a", search.Vector{1})
	c.Put(ctx, "b", search.Vector{2})
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, search.Vector{1}, v)

	// "b" is now least recently used and is evicted.
	c.Put(ctx, "c", search.Vector{3})
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(1)
	src := search.Vector{1, 2}
	c.Put(ctx, "k", src)
	src[0] = 9

	v, _ := c.Get(ctx, "k")
	v[1] = 9
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, search.Vector{1, 2}, again)
}

func TestLRU_ZeroCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		c := NewLRU(capacity)
		c.Put(context.Background(), "k", search.Vector{1})
		assert.Zero(t, c.Len())
		_, ok := c.Get(context.Background(), "k")
		assert.False(t, ok)
	}
}

func TestLRU_PutRefreshesExisting(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2)
	c.Put(ctx, "a", search.Vector{1})
	c.Put(ctx, "b", search.Vector{2})
	c.Put(ctx, "a", search.Vector{5})

	c.Put(ctx, "c", search.Vector{3})
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, search.Vector{5}, v)
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
}

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	ttls    map[string]time.Duration
	failing bool
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestRedis_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
	c := newRedis(fake, time.Hour, nil)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Put(ctx, "k", search.Vector{0.5, -1})
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, search.Vector{0.5, -1}, v)

	require.Len(t, fake.ttls, 1)
	for key, ttl := range fake.ttls {
		assert.Contains(t, key, keyPrefix)
		assert.Equal(t, time.Hour, ttl)
	}
	assert.NoError(t, c.Close())
}

func TestRedis_FailuresAreMisses(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}, failing: true}
	c := newRedis(fake, time.Hour, nil)

	c.Put(ctx, "k", search.Vector{1})
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{data: map[string]string{redisKey("k"): "not a vector"}, ttls: map[string]time.Duration{}}
	c := newRedis(fake, 0, nil)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedis_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, RedisOptions{Address: addr, TTL: time.Minute}, nil)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	key := search.CacheKey("models/test", search.TaskRetrievalQuery, t.Name())
	c.Put(ctx, key, search.Vector{0.25, 0.75})
	v, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, search.Vector{0.25, 0.75}, v)
}
