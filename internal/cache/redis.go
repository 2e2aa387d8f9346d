package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces this application's keys inside a shared
// Redis instance.
const DefaultRedisPrefix = "aareguru:cache:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g. "redis://localhost:6379").
	URL string

	// Prefix is prepended to every cache key (defaults to DefaultRedisPrefix).
	Prefix string

	// TTL is how long entries live. Redis expires them server-side, so the
	// lazy-eviction behavior of the in-memory store is delegated to Redis.
	TTL time.Duration
}

// RedisStore is a Redis-backed cache for multi-instance deployments where
// the instances should share one upstream response cache.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	slog.Info("redis cache connected", "prefix", prefix, "ttl", cfg.TTL)

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
	}, nil
}

// Get retrieves a value. Expiry is enforced by Redis itself.
// Connection errors are reported as misses: the caller falls through to a
// real fetch, which is the correct degradation for a cache.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("redis cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Set stores a value with the configured TTL, overwriting any prior entry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache in redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
