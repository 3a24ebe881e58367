package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/weisyn/nodegate/internal/api/http/handlers"
	"github.com/weisyn/nodegate/internal/core/connection"
)

// Module 返回 HTTP 服务模块
func Module() fx.Option {
	return fx.Options(
		fx.Invoke(func() { gin.SetMode(gin.ReleaseMode) }),
		fx.Provide(
			func(r *connection.Registry) handlers.Connections { return r },
			NewServer,
		),
	)
}
