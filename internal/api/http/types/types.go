// Package types 定义 HTTP 接口的请求与响应结构
package types

import "encoding/json"

// InvokeRequest POST /api 请求体
type InvokeRequest struct {
	Type      string            `json:"type"`
	Namespace string            `json:"namespace"`
	Method    string            `json:"method"`
	Params    []json.RawMessage `json:"params"`
	Network   string            `json:"network"`
	BlockHash string            `json:"blockHash,omitempty"`
}

// ListMethodsRequest POST /api/listMethods 请求体
type ListMethodsRequest struct {
	Network string `json:"network"`
	Type    string `json:"type,omitempty"` // 默认 tx
}

// ResultResponse 成功响应
type ResultResponse struct {
	Result interface{} `json:"result"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse GET /health 响应
type HealthResponse struct {
	Status    string   `json:"status"`
	Uptime    string   `json:"uptime"`
	Endpoints []string `json:"endpoints"`
}
