package connection

import (
	"context"

	"go.uber.org/fx"

	upstreamconfig "github.com/weisyn/nodegate/internal/config/upstream"
	logmod "github.com/weisyn/nodegate/internal/core/infrastructure/log"
	"github.com/weisyn/nodegate/internal/core/infrastructure/metrics"
	"github.com/weisyn/nodegate/internal/core/substrate"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/log"
	metricsiface "github.com/weisyn/nodegate/pkg/interfaces/infrastructure/metrics"
)

// ModuleInput 连接模块依赖
type ModuleInput struct {
	fx.In

	Upstream   *upstreamconfig.UpstreamOptions
	Logger     log.Logger          `optional:"true"`
	EventBus   event.EventBus      `optional:"true"`
	Collectors *metrics.Collectors `optional:"true"`
	Loader     chain.RuntimeLoader `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// ModuleOutput 连接模块输出
type ModuleOutput struct {
	fx.Out

	Registry  *Registry
	Connector chain.Connector
	Reporter  metricsiface.MemoryReporter `group:"memory_reporters"`
}

// Module 返回连接缓存模块
func Module() fx.Option {
	return fx.Module("connection",
		fx.Provide(ProvideRegistry),
		fx.Invoke(SubscribeLifecycleLogs),
	)
}

// ProvideRegistry 创建节点连接器与句柄注册表
func ProvideRegistry(in ModuleInput) ModuleOutput {
	logger := logmod.NewModuleLogger(in.Logger, "connection")

	connector := substrate.NewConnector(substrate.Options{
		HandshakeTimeout: in.Upstream.HandshakeTimeout,
		ReadLimit:        in.Upstream.ReadLimit,
		Loader:           in.Loader,
		Logger:           logger,
	})

	reg := New(connector, Options{
		ConnectTimeout: in.Upstream.ConnectTimeout,
		SingleFlight:   in.Upstream.SingleFlight,
	}, logger, in.EventBus, in.Collectors)

	in.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if logger != nil {
				logger.Infof("关闭节点连接: count=%d", reg.Len())
			}
			return reg.Close()
		},
	})

	return ModuleOutput{
		Registry:  reg,
		Connector: connector,
		Reporter:  reg,
	}
}

// LogSubscriberInput 事件日志订阅依赖
type LogSubscriberInput struct {
	fx.In

	Logger   log.Logger     `optional:"true"`
	EventBus event.EventBus `optional:"true"`
}

// SubscribeLifecycleLogs 将连接事件写入日志
func SubscribeLifecycleLogs(in LogSubscriberInput) error {
	if in.EventBus == nil || in.Logger == nil {
		return nil
	}
	logger := logmod.NewModuleLogger(in.Logger, "connection")

	if err := in.EventBus.SubscribeAsync(TopicCreated, func(e Event) {
		logger.Infof("节点句柄已创建: endpoint=%s runtime=%s elapsed=%s", e.Endpoint, e.RuntimeVersion, e.Duration)
	}, false); err != nil {
		return err
	}
	if err := in.EventBus.SubscribeAsync(TopicFailed, func(e Event) {
		logger.Warnf("节点句柄创建失败: endpoint=%s elapsed=%s err=%v", e.Endpoint, e.Duration, e.Err)
	}, false); err != nil {
		return err
	}
	return in.EventBus.Subscribe(TopicReused, func(e Event) {
		logger.Debugf("复用节点句柄: endpoint=%s", e.Endpoint)
	})
}
