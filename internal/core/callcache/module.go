package callcache

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	cacheconfig "github.com/weisyn/nodegate/internal/config/cache"
	logmod "github.com/weisyn/nodegate/internal/core/infrastructure/log"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/metrics"
)

// ModuleInput 缓存模块依赖
type ModuleInput struct {
	fx.In

	Options   *cacheconfig.CacheOptions
	Logger    log.Logger `optional:"true"`
	Lifecycle fx.Lifecycle
}

// ModuleOutput 缓存模块输出
type ModuleOutput struct {
	fx.Out

	Cache    Cache
	Reporter metrics.MemoryReporter `group:"memory_reporters"`
}

// Module 返回解码调用缓存模块
func Module() fx.Option {
	return fx.Module("callcache",
		fx.Provide(ProvideCache),
	)
}

// ProvideCache 按配置选择缓存后端
func ProvideCache(in ModuleInput) (ModuleOutput, error) {
	logger := logmod.NewModuleLogger(in.Logger, "callcache")

	cache, err := New(context.Background(), in.Options)
	if err != nil {
		return ModuleOutput{}, err
	}
	if logger != nil {
		logger.Infof("解码调用缓存已启用: backend=%s", in.Options.Backend)
	}

	in.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return cache.Close()
		},
	})

	out := ModuleOutput{Cache: cache}
	if r, ok := cache.(metrics.MemoryReporter); ok {
		out.Reporter = r
	} else {
		out.Reporter = emptyReporter{}
	}
	return out, nil
}

// New 根据配置创建缓存
func New(ctx context.Context, opts *cacheconfig.CacheOptions) (Cache, error) {
	if opts == nil {
		opts = cacheconfig.New(nil).GetOptions()
	}
	switch opts.Backend {
	case cacheconfig.BackendNone:
		return Noop{}, nil
	case cacheconfig.BackendRedis:
		c, err := NewRedisCache(ctx, opts.Redis)
		if err != nil {
			return nil, fmt.Errorf("callcache redis backend: %w", err)
		}
		return c, nil
	default:
		c, err := NewMemoryCache(opts.LifeWindow, opts.MaxEntrySize)
		if err != nil {
			return nil, fmt.Errorf("callcache memory backend: %w", err)
		}
		return c, nil
	}
}

// emptyReporter 无进程内存占用的后端
type emptyReporter struct{}

func (emptyReporter) ModuleName() string { return "callcache" }

func (emptyReporter) CollectMemoryStats() metrics.ModuleMemoryStats {
	return metrics.ModuleMemoryStats{Module: "callcache"}
}
