package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/nodegate/internal/api/http/middleware"
	"github.com/weisyn/nodegate/internal/api/http/types"
	"github.com/weisyn/nodegate/internal/core/invoker"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/log"
)

// ProxyHandler POST /api
type ProxyHandler struct {
	conns   Connections
	invoker *invoker.Invoker
	logger  log.Logger
}

// NewProxyHandler 创建代理处理器
func NewProxyHandler(conns Connections, iv *invoker.Invoker, logger log.Logger) *ProxyHandler {
	return &ProxyHandler{conns: conns, invoker: iv, logger: logger}
}

// Invoke 解析请求、获取句柄并调用能力
//
// 状态码：
//   - 400：请求体非法、缺少 network、类别/命名空间/方法不存在
//   - 500：句柄创建、历史视图或能力调用失败，错误信息原样返回
func (h *ProxyHandler) Invoke(c *gin.Context) {
	var req types.InvokeRequest
	if !bindJSON(c, &req) {
		return
	}

	ireq := invoker.Request{
		Type:      req.Type,
		Namespace: req.Namespace,
		Method:    req.Method,
		Params:    req.Params,
		BlockHash: req.BlockHash,
	}
	// 路径在连接节点前即可判定的部分先校验
	if _, ok := ireq.Path(); !ok {
		writeError(c, http.StatusBadRequest, invoker.InvalidRequestMessage)
		return
	}
	if req.Network == "" {
		writeError(c, http.StatusBadRequest, "network is required")
		return
	}
	setNetwork(c, req.Network)

	// 调用方断开不中断进行中的远程调用
	ctx := context.WithoutCancel(c.Request.Context())

	handle, err := h.conns.Acquire(ctx, req.Network)
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	res, err := h.invoker.Invoke(ctx, handle, ireq)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, invoker.ErrInvalidRequest) {
			writeError(c, http.StatusBadRequest, invoker.InvalidRequestMessage)
			return
		}
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if res.Decoration != nil {
		h.logDecoration(c, req, res.Decoration)
	}
	writeResult(c, res.Value)
}

func (h *ProxyHandler) logDecoration(c *gin.Context, req types.InvokeRequest, report *invoker.DecorationReport) {
	if h.logger == nil {
		return
	}
	zl := h.logger.GetZapLogger()
	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("network", req.Network),
		zap.String("status", string(report.Status)),
	}

	switch report.Status {
	case invoker.StatusDecodeFailed, invoker.StatusSerializeFailed:
		zl.Warn("预映像调用解码失败，返回未装饰结果", append(fields, zap.Error(report.Err))...)
	case invoker.StatusNotSerializable:
		zl.Warn("解码后的调用不支持结构化序列化", fields...)
	default:
		for _, ne := range report.NodeErrors {
			zl.Warn("调用索引解析失败",
				append(fields, zap.String("path", ne.Path), zap.String("call_index", ne.Tag), zap.Error(ne.Err))...)
		}
		zl.Debug("预映像调用装饰完成", fields...)
	}
}
