// Package api 组装对外接口
package api

import (
	"go.uber.org/fx"

	"github.com/weisyn/nodegate/internal/api/http"
)

// Module 返回 API 模块
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),
		// 显式依赖服务器以触发其生命周期钩子
		fx.Invoke(func(*http.Server) {}),
	)
}
