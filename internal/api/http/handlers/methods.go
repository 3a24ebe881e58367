package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/nodegate/internal/api/http/types"
	"github.com/weisyn/nodegate/internal/core/lister"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// MethodsHandler POST /api/listMethods
type MethodsHandler struct {
	lister *lister.Lister
}

// NewMethodsHandler 创建方法列举处理器
func NewMethodsHandler(l *lister.Lister) *MethodsHandler {
	return &MethodsHandler{lister: l}
}

// ListMethods 返回 命名空间 -> 方法名列表
func (h *MethodsHandler) ListMethods(c *gin.Context) {
	var req types.ListMethodsRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Network == "" {
		writeError(c, http.StatusBadRequest, "network is required")
		return
	}
	category := chain.Category(req.Type)
	if req.Type != "" {
		if _, ok := chain.ParseCategory(req.Type); !ok {
			writeError(c, http.StatusBadRequest, "unknown type "+req.Type)
			return
		}
	}
	setNetwork(c, req.Network)

	result, err := h.lister.List(context.WithoutCancel(c.Request.Context()), req.Network, category)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	writeResult(c, result)
}
