package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helixml/openflights/domain/search"
)

// keyPrefix namespaces cache keys in a shared Redis.
const keyPrefix = "openflights:qvec:"

// redisCommands is the subset of redis.Cmdable the cache uses.
type redisCommands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisOptions configures a Redis vector cache.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a vector cache shared across processes. Vectors are stored as
// canonical vector text. Redis failures are logged and treated as misses.
type Redis struct {
	client redisCommands
	closer func() error
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	c := newRedis(client, opts.TTL, logger)
	c.closer = client.Close
	return c, nil
}

func newRedis(client redisCommands, ttl time.Duration, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached vector for key.
func (c *Redis) Get(ctx context.Context, key string) (search.Vector, bool) {
	text, err := c.client.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("vector cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	v, err := search.ParseVector(text)
	if err != nil {
		c.logger.Warn("vector cache entry unreadable", slog.String("error", err.Error()))
		return nil, false
	}
	return v, true
}

// Put stores v under key with the configured TTL.
func (c *Redis) Put(ctx context.Context, key string, v search.Vector) {
	if err := c.client.Set(ctx, redisKey(key), search.EncodeVector(v), c.ttl).Err(); err != nil {
		c.logger.Warn("vector cache write failed", slog.String("error", err.Error()))
	}
}

// Close closes the connection when the cache owns it.
func (c *Redis) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// redisKey hashes the cache key; query texts can be long and arbitrary.
func redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return keyPrefix + hex.EncodeToString(sum[:])
}
