package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/weisyn/nodegate/internal/api"
	"github.com/weisyn/nodegate/internal/config"
	"github.com/weisyn/nodegate/internal/core/callcache"
	"github.com/weisyn/nodegate/internal/core/connection"
	"github.com/weisyn/nodegate/internal/core/infrastructure/event"
	log "github.com/weisyn/nodegate/internal/core/infrastructure/log"
	"github.com/weisyn/nodegate/internal/core/infrastructure/metrics"
	"github.com/weisyn/nodegate/internal/core/invoker"
	"github.com/weisyn/nodegate/internal/core/lister"
	"github.com/weisyn/nodegate/internal/core/substrate/metadata"
	configiface "github.com/weisyn/nodegate/pkg/interfaces/config"
)

// Bootstrap 应用引导程序，按层组装 fx 模块
type Bootstrap struct {
	opts *options
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{opts: opts}
}

// SetupInfrastructureLayer 配置、日志、事件与指标
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		fx.Provide(func() configiface.AppOptions { return b.opts }),
		config.Module(),  // 1. 配置(不依赖其他)
		log.Module(),     // 2. 日志(依赖配置)
		event.Module(),   // 3. 事件总线
		metrics.Module(), // 4. 指标注册表
	}
}

// SetupBusinessLayer 节点连接、调用与列举
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		callcache.Module(),  // 解码调用缓存
		metadata.Module(),   // 运行时加载器(依赖上游配置)
		connection.Module(), // 句柄注册表(依赖事件、指标与运行时)
		invoker.Module(),    // 动态调用(依赖缓存)
		lister.Module(),     // 方法列举(依赖句柄注册表)
	}
}

// SetupApplicationLayer 对外接口
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	if !b.opts.enableAPI {
		return nil
	}
	return []fx.Option{api.Module()}
}

// Options 全部 fx 选项
func (b *Bootstrap) Options() []fx.Option {
	var all []fx.Option
	all = append(all, b.SetupInfrastructureLayer()...)
	all = append(all, b.SetupBusinessLayer()...)
	all = append(all, b.SetupApplicationLayer()...)

	// fx 自身事件仅在 debug 级别输出
	all = append(all, fx.WithLogger(func(z *zap.Logger) fxevent.Logger {
		l := &fxevent.ZapLogger{Logger: z}
		l.UseLogLevel(zap.DebugLevel)
		return l
	}))
	return all
}
