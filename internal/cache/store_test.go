package cache

import (
	"context"
	"testing"
	"time"

	"assistantsproxy/internal/core"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisConfigStore) {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := NewRedisConfigStore(context.Background(), RedisConfigStoreConfig{
		URL: "redis://" + mr.Addr(),
		TTL: ttl,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func sampleEndpointsConfig() core.EndpointsConfig {
	return core.EndpointsConfig{
		"assistants":      {Version: "2"},
		"azureAssistants": {Version: "1"},
	}
}

func TestMemoryConfigStore_GetSet(t *testing.T) {
	store := NewMemoryConfigStore(0)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	_, ok, err := store.GetEndpointsConfig(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "未发布前不应有配置")

	require.NoError(t, store.SetEndpointsConfig(ctx, sampleEndpointsConfig()))

	cfg, ok, err := store.GetEndpointsConfig(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.FlexString("2"), cfg["assistants"].Version)
}

func TestMemoryConfigStore_ReturnsCopy(t *testing.T) {
	store := NewMemoryConfigStore(0)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	require.NoError(t, store.SetEndpointsConfig(ctx, sampleEndpointsConfig()))

	cfg, _, _ := store.GetEndpointsConfig(ctx)
	cfg["assistants"] = core.EndpointConfig{Version: "9"}

	again, _, _ := store.GetEndpointsConfig(ctx)
	assert.Equal(t, core.FlexString("2"), again["assistants"].Version, "调用方修改不应影响缓存")
}

func TestMemoryConfigStore_TTL(t *testing.T) {
	store := NewMemoryConfigStore(50 * time.Millisecond)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	require.NoError(t, store.SetEndpointsConfig(ctx, sampleEndpointsConfig()))
	time.Sleep(100 * time.Millisecond)

	_, ok, err := store.GetEndpointsConfig(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "过期后不应返回配置")
}

func TestRedisConfigStore_GetSet(t *testing.T) {
	mr, store := setupRedisStore(t, 0)
	ctx := context.Background()

	_, ok, err := store.GetEndpointsConfig(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetEndpointsConfig(ctx, sampleEndpointsConfig()))
	assert.True(t, mr.Exists("CONFIG_STORE:ENDPOINT_CONFIG"))

	cfg, ok, err := store.GetEndpointsConfig(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleEndpointsConfig(), cfg)
}

func TestRedisConfigStore_NumericVersion(t *testing.T) {
	mr, store := setupRedisStore(t, 0)
	require.NoError(t, mr.Set(EndpointConfigCacheKey, `{"assistants":{"version":2}}`))

	cfg, ok, err := store.GetEndpointsConfig(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.FlexString("2"), cfg["assistants"].Version)
}

func TestRedisConfigStore_TTL(t *testing.T) {
	mr, store := setupRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SetEndpointsConfig(ctx, sampleEndpointsConfig()))
	assert.Equal(t, time.Minute, mr.TTL(EndpointConfigCacheKey))

	mr.FastForward(2 * time.Minute)
	_, ok, err := store.GetEndpointsConfig(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisConfigStore_CorruptValue(t *testing.T) {
	mr, store := setupRedisStore(t, 0)
	require.NoError(t, mr.Set(EndpointConfigCacheKey, "not-json"))

	_, _, err := store.GetEndpointsConfig(context.Background())
	assert.Error(t, err)
}

func TestNewConfigStore_Fallback(t *testing.T) {
	ctx := context.Background()

	store := NewConfigStore(ctx, "", 0, &core.NopLogger{})
	_, isMemory := store.(*MemoryConfigStore)
	assert.True(t, isMemory, "未配置 Redis 时应使用内存存储")
	_ = store.Close()

	store = NewConfigStore(ctx, "://bad-url", 0, &core.NopLogger{})
	_, isMemory = store.(*MemoryConfigStore)
	assert.True(t, isMemory, "Redis 不可用时应回退到内存存储")
	_ = store.Close()

	mr := miniredis.RunT(t)
	store = NewConfigStore(ctx, "redis://"+mr.Addr(), 0, &core.NopLogger{})
	_, isRedis := store.(*RedisConfigStore)
	assert.True(t, isRedis)
	_ = store.Close()
}
