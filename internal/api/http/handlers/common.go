// Package handlers 实现代理的 HTTP 处理器
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/nodegate/internal/api/http/middleware"
	"github.com/weisyn/nodegate/internal/api/http/types"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// Connections 句柄注册表
type Connections interface {
	Acquire(ctx context.Context, endpoint string) (chain.Handle, error)
	Endpoints() []string
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, types.ErrorResponse{Error: msg})
}

func writeResult(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, types.ResultResponse{Result: result})
}

// bindJSON 解析请求体，失败时写出 400（超出大小限制时 413）并返回 false
func bindJSON(c *gin.Context, out any) bool {
	err := c.ShouldBindJSON(out)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(c, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
	return false
}

func setNetwork(c *gin.Context, network string) {
	c.Set(middleware.NetworkKey, network)
}
