package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/nodegate/internal/config/cache"
	"github.com/weisyn/nodegate/pkg/types"
)

// TestProvider_Defaults 测试未配置时使用默认值
func TestProvider_Defaults(t *testing.T) {
	provider := NewProvider(nil)

	apiOpts := provider.GetAPI()
	assert.Equal(t, "127.0.0.1", apiOpts.HTTP.Host)
	assert.Equal(t, 3000, apiOpts.HTTP.Port)
	assert.True(t, apiOpts.HTTP.Enabled)

	upstreamOpts := provider.GetUpstream()
	assert.True(t, upstreamOpts.SingleFlight)
	assert.True(t, upstreamOpts.LoadMetadata)
	assert.Equal(t, time.Duration(0), upstreamOpts.CallTimeout, "默认不限制调用时长")

	cacheOpts := provider.GetCache()
	assert.Equal(t, cache.BackendMemory, cacheOpts.Backend)

	assert.Equal(t, "info", provider.GetLog().Level)
}

// TestProvider_UserOverrides 测试用户配置覆盖默认值
func TestProvider_UserOverrides(t *testing.T) {
	cfg := &types.AppConfig{
		API: &types.UserAPIConfig{
			HTTPPort: types.IntPtr(8080),
		},
		Upstream: &types.UserUpstreamConfig{
			CallTimeout:  types.StringPtr("5s"),
			SingleFlight: types.BoolPtr(false),
			LoadMetadata: types.BoolPtr(false),
		},
		Cache: &types.UserCacheConfig{
			Backend: types.StringPtr("none"),
		},
	}
	provider := NewProvider(cfg)

	assert.Equal(t, 8080, provider.GetAPI().HTTP.Port)
	assert.Equal(t, "127.0.0.1", provider.GetAPI().HTTP.Host, "未覆盖的字段保持默认")
	assert.Equal(t, 5*time.Second, provider.GetUpstream().CallTimeout)
	assert.False(t, provider.GetUpstream().SingleFlight)
	assert.False(t, provider.GetUpstream().LoadMetadata)
	assert.Equal(t, cache.BackendNone, provider.GetCache().Backend)
}

// TestParse 测试 JSON 配置解析
func TestParse(t *testing.T) {
	t.Run("空输入", func(t *testing.T) {
		cfg, err := Parse(nil)
		require.NoError(t, err)
		assert.Nil(t, cfg.API)
	})

	t.Run("正常解析", func(t *testing.T) {
		cfg, err := Parse([]byte(`{"api":{"http_port":9000},"cache":{"backend":"redis","redis_addr":"10.0.0.1:6379"}}`))
		require.NoError(t, err)
		require.NotNil(t, cfg.API)
		assert.Equal(t, 9000, *cfg.API.HTTPPort)
		assert.Equal(t, "10.0.0.1:6379", *cfg.Cache.RedisAddr)
	})

	t.Run("非法 JSON", func(t *testing.T) {
		_, err := Parse([]byte(`{`))
		assert.Error(t, err)
	})
}

// TestApplyEnv 测试环境变量覆盖
func TestApplyEnv(t *testing.T) {
	t.Run("覆盖已有配置", func(t *testing.T) {
		t.Setenv("NODEGATE_HTTP_PORT", "4000")
		t.Setenv("NODEGATE_LOG_LEVEL", "debug")
		cfg := &types.AppConfig{API: &types.UserAPIConfig{HTTPPort: types.IntPtr(3000)}}

		require.NoError(t, ApplyEnv(cfg))
		assert.Equal(t, 4000, *cfg.API.HTTPPort)
		assert.Equal(t, "debug", *cfg.Log.Level)
		assert.Nil(t, cfg.Cache, "未设置的环境变量不创建配置段")
	})

	t.Run("缓存后端", func(t *testing.T) {
		t.Setenv("NODEGATE_CACHE_BACKEND", "redis")
		t.Setenv("NODEGATE_REDIS_ADDR", "redis:6379")
		cfg := &types.AppConfig{}

		require.NoError(t, ApplyEnv(cfg))
		assert.Equal(t, cache.BackendRedis, NewProvider(cfg).GetCache().Backend)
		assert.Equal(t, "redis:6379", NewProvider(cfg).GetCache().Redis.Addr)
	})

	t.Run("非法端口", func(t *testing.T) {
		t.Setenv("NODEGATE_HTTP_PORT", "abc")
		assert.Error(t, ApplyEnv(&types.AppConfig{}))
	})
}

// TestLoadFile 测试从文件加载配置
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log":{"level":"warn"}}`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", NewProvider(cfg).GetLog().Level)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
