package invoker

import (
	"go.uber.org/fx"

	upstreamconfig "github.com/weisyn/nodegate/internal/config/upstream"
	"github.com/weisyn/nodegate/internal/core/callcache"
	"github.com/weisyn/nodegate/internal/core/infrastructure/metrics"
)

// ModuleInput 调用器依赖
type ModuleInput struct {
	fx.In

	Upstream   *upstreamconfig.UpstreamOptions
	Cache      callcache.Cache     `optional:"true"`
	Collectors *metrics.Collectors `optional:"true"`
}

// Module 返回调用器模块
func Module() fx.Option {
	return fx.Module("invoker",
		fx.Provide(ProvideInvoker),
	)
}

// ProvideInvoker 创建调用器
func ProvideInvoker(in ModuleInput) *Invoker {
	return New(Options{CallTimeout: in.Upstream.CallTimeout}, in.Cache, in.Collectors)
}
