// Package transport 代理服务的 HTTP 客户端
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// APIError 代理返回的非 200 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// CallRequest 一次方法调用
type CallRequest struct {
	Type      string            `json:"type"`
	Namespace string            `json:"namespace"`
	Method    string            `json:"method"`
	Params    []json.RawMessage `json:"params"`
	Network   string            `json:"network"`
	BlockHash string            `json:"blockHash,omitempty"`
}

type listMethodsRequest struct {
	Network string `json:"network"`
	Type    string `json:"type,omitempty"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// HealthStatus GET /health 响应
type HealthStatus struct {
	Status    string   `json:"status"`
	Uptime    string   `json:"uptime"`
	Endpoints []string `json:"endpoints"`
}

// ProxyClient 代理服务客户端
type ProxyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewProxyClient 创建客户端，timeout 为 0 时使用 30s
func NewProxyClient(baseURL string, timeout time.Duration) *ProxyClient {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &ProxyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Call 调用 POST /api，返回原始 result
func (c *ProxyClient) Call(ctx context.Context, req CallRequest) (json.RawMessage, error) {
	if req.Params == nil {
		req.Params = []json.RawMessage{}
	}
	return c.post(ctx, "/api", req)
}

// ListMethods 调用 POST /api/listMethods，category 为空时服务端默认 tx
func (c *ProxyClient) ListMethods(ctx context.Context, network, category string) (map[string][]string, error) {
	raw, err := c.post(ctx, "/api/listMethods", listMethodsRequest{Network: network, Type: category})
	if err != nil {
		return nil, err
	}
	var out map[string][]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode methods: %w", err)
	}
	return out, nil
}

// Health 调用 GET /health
func (c *ProxyClient) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	var out HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func (c *ProxyClient) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode != http.StatusOK {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if env.Result == nil {
		return json.RawMessage("null"), nil
	}
	return env.Result, nil
}

// IsBadRequest 判断是否为 400 响应
func IsBadRequest(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest
}
