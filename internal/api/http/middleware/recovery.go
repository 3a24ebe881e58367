package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/log"
)

// Recovery 捕获处理器 panic，返回 500 并记录堆栈
func Recovery(logger log.Logger) gin.HandlerFunc {
	zl := zap.NewNop()
	if logger != nil && logger.GetZapLogger() != nil {
		zl = logger.GetZapLogger()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		zl.Error("处理请求时发生 panic",
			zap.String("request_id", GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
