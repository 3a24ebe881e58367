package metadata

import (
	"go.uber.org/fx"

	upstreamconfig "github.com/weisyn/nodegate/internal/config/upstream"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// ModuleOutput 运行时模块输出
type ModuleOutput struct {
	fx.Out

	Loader chain.RuntimeLoader // 关闭时为 nil
}

// Module 返回运行时加载器模块
func Module() fx.Option {
	return fx.Module("metadata",
		fx.Provide(ProvideLoader),
	)
}

// ProvideLoader 按配置提供加载器，关闭时连接只发现 rpc 类别
func ProvideLoader(opts *upstreamconfig.UpstreamOptions) ModuleOutput {
	if !opts.LoadMetadata {
		return ModuleOutput{}
	}
	return ModuleOutput{Loader: NewLoader()}
}
