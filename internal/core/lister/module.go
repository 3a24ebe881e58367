package lister

import (
	"go.uber.org/fx"

	"github.com/weisyn/nodegate/internal/core/connection"
)

// Module 返回方法列举模块
func Module() fx.Option {
	return fx.Module("lister",
		fx.Provide(func(reg *connection.Registry) *Lister {
			return New(reg)
		}),
	)
}
