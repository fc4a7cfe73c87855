package cache

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"assistantsproxy/internal/core"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// EndpointConfigCacheKey is the namespaced key the endpoints config lives under.
var EndpointConfigCacheKey = core.ConfigStoreNamespace + ":" + core.EndpointConfigKey

// MemoryConfigStore keeps the endpoints config in a process-local LRU cache.
type MemoryConfigStore struct {
	cache *LRUCache[core.EndpointsConfig]
	ttl   time.Duration
}

// NewMemoryConfigStore creates an in-process config store. ttl <= 0 never expires.
func NewMemoryConfigStore(ttl time.Duration) *MemoryConfigStore {
	return &MemoryConfigStore{cache: NewCache[core.EndpointsConfig](1), ttl: ttl}
}

// GetEndpointsConfig returns a copy of the stored config.
func (s *MemoryConfigStore) GetEndpointsConfig(_ context.Context) (core.EndpointsConfig, bool, error) {
	cfg, ok := s.cache.Get(EndpointConfigCacheKey)
	if !ok {
		return nil, false, nil
	}
	return maps.Clone(cfg), true, nil
}

// SetEndpointsConfig replaces the stored config.
func (s *MemoryConfigStore) SetEndpointsConfig(_ context.Context, cfg core.EndpointsConfig) error {
	s.cache.Set(EndpointConfigCacheKey, maps.Clone(cfg), s.ttl)
	return nil
}

// Close stops the cache cleanup worker.
func (s *MemoryConfigStore) Close() error {
	s.cache.Stop()
	return nil
}

// RedisConfigStore shares the endpoints config across instances through Redis.
type RedisConfigStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisConfigStoreConfig Redis config store settings
type RedisConfigStoreConfig struct {
	URL string
	Key string
	TTL time.Duration
}

// NewRedisConfigStore connects to Redis and verifies the connection.
func NewRedisConfigStore(ctx context.Context, config RedisConfigStoreConfig) (*RedisConfigStore, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	key := config.Key
	if key == "" {
		key = EndpointConfigCacheKey
	}
	return &RedisConfigStore{client: client, key: key, ttl: config.TTL}, nil
}

// GetEndpointsConfig loads the config; a missing key reports false.
func (s *RedisConfigStore) GetEndpointsConfig(ctx context.Context) (core.EndpointsConfig, bool, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var cfg core.EndpointsConfig
	if err := sonic.Unmarshal(val, &cfg); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return cfg, true, nil
}

// SetEndpointsConfig stores the config with the configured TTL.
func (s *RedisConfigStore) SetEndpointsConfig(ctx context.Context, cfg core.EndpointsConfig) error {
	data, err := sonic.Marshal(cfg)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key, data, ttl).Err()
}

// Close closes the Redis client.
func (s *RedisConfigStore) Close() error {
	return s.client.Close()
}

// NewConfigStore returns a Redis-backed store when redisURL is set and reachable,
// otherwise an in-memory one.
func NewConfigStore(ctx context.Context, redisURL string, ttl time.Duration, logger core.Logger) core.ConfigStore {
	if redisURL != "" {
		store, err := NewRedisConfigStore(ctx, RedisConfigStoreConfig{URL: redisURL, TTL: ttl})
		if err != nil {
			logger.Warn("Failed to initialize Redis config store: %v, falling back to memory", err)
			return NewMemoryConfigStore(ttl)
		}
		logger.Info("Using Redis config store")
		return store
	}

	logger.Info("Using in-memory config store")
	return NewMemoryConfigStore(ttl)
}
