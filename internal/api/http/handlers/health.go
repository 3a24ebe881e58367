package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/nodegate/internal/api/http/types"
)

// HealthHandler 健康检查
type HealthHandler struct {
	conns     Connections
	startTime time.Time
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(conns Connections) *HealthHandler {
	return &HealthHandler{conns: conns, startTime: time.Now()}
}

// GetHealth 进程存活状态与已缓存的端点
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Endpoints: h.conns.Endpoints(),
	})
}
