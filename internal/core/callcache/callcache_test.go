package callcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheconfig "github.com/weisyn/nodegate/internal/config/cache"
	"github.com/weisyn/nodegate/pkg/types"
)

// mockRedisClient mock Redis 客户端实现
type mockRedisClient struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	closed bool
}

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockRedisClient) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("client closed")
	}
	m.data[key] = append([]byte(nil), value...)
	m.ttls[key] = expiration
	return nil
}

func (m *mockRedisClient) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errKeyNotFound
	}
	return v, nil
}

func (m *mockRedisClient) Ping(context.Context) error { return nil }

func (m *mockRedisClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// TestKey 测试缓存键生成
func TestKey(t *testing.T) {
	k := Key("wss://a", "polkadot-1", []byte{1, 2, 3})
	assert.Len(t, k, 64)
	assert.Equal(t, k, Key("wss://a", "polkadot-1", []byte{1, 2, 3}), "相同输入键相同")

	assert.NotEqual(t, k, Key("wss://b", "polkadot-1", []byte{1, 2, 3}))
	assert.NotEqual(t, k, Key("wss://a", "polkadot-2", []byte{1, 2, 3}))
	assert.NotEqual(t, k, Key("wss://a", "polkadot-1", []byte{1, 2, 4}))
}

// TestMemoryCache 测试内存后端
func TestMemoryCache(t *testing.T) {
	c, err := NewMemoryCache(time.Minute, 256)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "k", []byte(`{"callName":"transfer"}`)))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"callName":"transfer"}`, string(v))

	stats := c.CollectMemoryStats()
	assert.Equal(t, "callcache", stats.Module)
	assert.EqualValues(t, 1, stats.CacheItems)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

// TestRedisCache 测试 Redis 后端
func TestRedisCache(t *testing.T) {
	client := newMockRedisClient()
	c := newRedisCacheWithClient(client, "nodegate:call:", time.Hour)
	ctx := context.Background()

	t.Run("未命中", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("写入带前缀与 TTL", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, "k", []byte("v")))
		assert.Equal(t, []byte("v"), client.data["nodegate:call:k"])
		assert.Equal(t, time.Hour, client.ttls["nodegate:call:k"])

		v, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", string(v))
	})

	t.Run("读取错误", func(t *testing.T) {
		client.getErr = errors.New("connection refused")
		defer func() { client.getErr = nil }()
		_, ok, err := c.Get(ctx, "k")
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("关闭", func(t *testing.T) {
		require.NoError(t, c.Close())
		assert.True(t, client.closed)
		assert.Error(t, c.Put(ctx, "k", []byte("v")))
	})
}

// TestNew 测试按配置选择后端
func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("默认内存后端", func(t *testing.T) {
		c, err := New(ctx, nil)
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &MemoryCache{}, c)
	})

	t.Run("关闭缓存", func(t *testing.T) {
		opts := cacheconfig.New(&types.UserCacheConfig{Backend: types.StringPtr("none")}).GetOptions()
		c, err := New(ctx, opts)
		require.NoError(t, err)
		assert.IsType(t, Noop{}, c)

		require.NoError(t, c.Put(ctx, "k", []byte("v")))
		_, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Redis 不可达", func(t *testing.T) {
		opts := cacheconfig.New(&types.UserCacheConfig{
			Backend:   types.StringPtr("redis"),
			RedisAddr: types.StringPtr("127.0.0.1:1"),
		}).GetOptions()
		_, err := New(ctx, opts)
		assert.Error(t, err)
	})
}
