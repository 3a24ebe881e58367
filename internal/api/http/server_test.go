package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/weisyn/nodegate/internal/api/http/middleware"
	apiconfig "github.com/weisyn/nodegate/internal/config/api"
	"github.com/weisyn/nodegate/internal/core/connection"
	"github.com/weisyn/nodegate/internal/core/infrastructure/log"
	"github.com/weisyn/nodegate/internal/core/invoker"
	"github.com/weisyn/nodegate/internal/core/lister"
	"github.com/weisyn/nodegate/internal/core/substrate/testutil"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

const knownNetwork = "wss://rpc.example"

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	server    *Server
	connector *testutil.MockConnector
	handle    *testutil.MockHandle
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T, opts *apiconfig.APIOptions) *fixture {
	t.Helper()
	handle := testutil.NewMockHandle(knownNetwork, "polkadot-1").
		Returning(chain.CategoryQuery, "system", "number", testutil.HexCodec("0x10")).
		Returning(chain.CategoryTx, "balances", "transfer", testutil.HexCodec("0x00")).
		Returning(chain.CategoryTx, "balances", "transferAll", testutil.HexCodec("0x00")).
		Register(chain.CategoryRPC, "chain", "getBlock", func([]json.RawMessage) (chain.Codec, error) {
			return nil, errors.New("-32000: state already discarded")
		}).
		Register(chain.CategoryRPC, "chain", "getBlockHash", func(params []json.RawMessage) (chain.Codec, error) {
			return testutil.JSONCodec{Value: map[string]any{"params": len(params)}}, nil
		}).
		Returning(chain.CategoryQuery, "preimage", "preimageFor", testutil.MockOption{Inner: testutil.HexCodec("0x0500")}).
		WithMeta([2]byte{0x05, 0x00}, "balances", "transfer").
		WithCreateType(func(string, string) (chain.Codec, error) {
			return testutil.JSONCodec{Value: map[string]any{"callIndex": "0x0500", "args": map[string]any{}}}, nil
		})

	connector := testutil.NewMockConnector(func(_ context.Context, endpoint string) (chain.Handle, error) {
		if endpoint != knownNetwork {
			return nil, fmt.Errorf("dial %s: connection refused", endpoint)
		}
		return handle, nil
	})

	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.FromZap(zap.New(core))

	registry := connection.New(connector, connection.Options{SingleFlight: true}, logger, nil, nil)
	t.Cleanup(func() { _ = registry.Close() })

	if opts == nil {
		opts = apiconfig.New(nil).GetOptions()
	}
	promReg := prometheus.NewRegistry()
	server := New(Deps{
		Options:     opts,
		Logger:      logger,
		Connections: registry,
		Invoker:     invoker.New(invoker.Options{}, nil, nil),
		Lister:      lister.New(registry),
		Registerer:  promReg,
		Gatherer:    promReg,
	})
	return &fixture{server: server, connector: connector, handle: handle, logs: logs}
}

func (f *fixture) post(t *testing.T, path string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

// TestProxy_Invoke 测试 POST /api 的成功路径
func TestProxy_Invoke(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("十六进制结果", func(t *testing.T) {
		w, out := f.post(t, "/api", `{"type":"query","namespace":"system","method":"number","params":[],"network":"`+knownNetwork+`"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"result": "0x10"}, out)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	})

	t.Run("参数按位置传递", func(t *testing.T) {
		w, out := f.post(t, "/api", `{"type":"rpc","namespace":"chain","method":"getBlockHash","params":[0,"x"],"network":"`+knownNetwork+`"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"result": map[string]any{"params": float64(2)}}, out)
	})

	t.Run("预映像结果被装饰", func(t *testing.T) {
		w, out := f.post(t, "/api", `{"type":"query","namespace":"preimage","method":"preimageFor","params":[["0xabc",2]],"network":"`+knownNetwork+`"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		result := out["result"].(map[string]any)
		assert.Equal(t, "transfer", result["callName"])
		assert.Equal(t, "balances", result["palletName"])
	})

	assert.Equal(t, 1, f.connector.Count(knownNetwork), "句柄只创建一次")
}

// TestProxy_PreimageUndecorated 测试预映像解码失败时仍返回 200 与原始 Option
func TestProxy_PreimageUndecorated(t *testing.T) {
	body := `{"type":"query","namespace":"preimage","method":"preimageFor","params":[["0xabc",2]],"network":"` + knownNetwork + `"}`

	t.Run("解码失败", func(t *testing.T) {
		f := newFixture(t, nil)
		f.handle.WithCreateType(func(string, string) (chain.Codec, error) {
			return nil, errors.New("unable to decode Call")
		})

		w, out := f.post(t, "/api", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"result": "0x010500"}, out)
		assert.Equal(t, 1, f.logs.FilterMessage("预映像调用解码失败，返回未装饰结果").Len())
	})

	t.Run("解码值不可序列化", func(t *testing.T) {
		f := newFixture(t, nil)
		f.handle.WithCreateType(func(string, string) (chain.Codec, error) {
			return testutil.HexCodec("0x0500"), nil
		})

		w, out := f.post(t, "/api", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"result": "0x010500"}, out)
		assert.Equal(t, 1, f.logs.FilterMessage("解码后的调用不支持结构化序列化").Len())
	})
}

// TestProxy_BadRequest 测试 400 响应
func TestProxy_BadRequest(t *testing.T) {
	f := newFixture(t, nil)

	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"未知类别", `{"type":"bogus","namespace":"system","method":"number","network":"` + knownNetwork + `"}`, invoker.InvalidRequestMessage},
		{"缺少方法", `{"type":"query","namespace":"system","network":"` + knownNetwork + `"}`, invoker.InvalidRequestMessage},
		{"命名空间不存在", `{"type":"query","namespace":"bogus","method":"x","network":"` + knownNetwork + `"}`, invoker.InvalidRequestMessage},
		{"方法不存在", `{"type":"query","namespace":"system","method":"nope","network":"` + knownNetwork + `"}`, invoker.InvalidRequestMessage},
		{"缺少 network", `{"type":"query","namespace":"system","method":"number"}`, "network is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, out := f.post(t, "/api", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.msg, out["error"])
		})
	}

	t.Run("非法 JSON", func(t *testing.T) {
		w, out := f.post(t, "/api", `{"type":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, out["error"], "invalid request body")
	})

	t.Run("类别非法时不连接节点", func(t *testing.T) {
		_, _ = f.post(t, "/api", `{"type":"bogus","namespace":"a","method":"b","network":"wss://other"}`)
		assert.Equal(t, 0, f.connector.Count("wss://other"))
	})

	assert.Equal(t, 0, f.handle.TotalCalls())
}

// TestProxy_ServerError 测试 500 响应
func TestProxy_ServerError(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("节点调用失败", func(t *testing.T) {
		w, out := f.post(t, "/api", `{"type":"rpc","namespace":"chain","method":"getBlock","network":"`+knownNetwork+`"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, out["error"], "state already discarded")
	})

	t.Run("端点不可达", func(t *testing.T) {
		w, out := f.post(t, "/api", `{"type":"query","namespace":"system","method":"number","network":"wss://down"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, out["error"], "connection refused")
	})

	t.Run("未知区块", func(t *testing.T) {
		w, out := f.post(t, "/api", `{"type":"query","namespace":"system","method":"number","network":"`+knownNetwork+`","blockHash":"0x22"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, out["error"], "not found")
	})

	assert.NotZero(t, f.logs.FilterMessage("HTTP request").FilterField(zap.Int("status", http.StatusInternalServerError)).Len())
}

// TestProxy_BodyLimit 测试请求体大小限制
func TestProxy_BodyLimit(t *testing.T) {
	opts := apiconfig.New(nil).GetOptions()
	opts.HTTP.MaxRequestSize = 64
	f := newFixture(t, opts)

	body := `{"type":"query","namespace":"system","method":"number","params":["` + strings.Repeat("a", 128) + `"],"network":"x"}`
	w, out := f.post(t, "/api", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "request body too large", out["error"])
}

// TestListMethods 测试 POST /api/listMethods
func TestListMethods(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("默认列举 tx", func(t *testing.T) {
		w, out := f.post(t, "/api/listMethods", `{"network":"`+knownNetwork+`"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{
			"balances": []any{"transfer", "transferAll"},
		}, out["result"])
	})

	t.Run("指定类别", func(t *testing.T) {
		w, out := f.post(t, "/api/listMethods", `{"network":"`+knownNetwork+`","type":"rpc"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{
			"chain": []any{"getBlock", "getBlockHash"},
		}, out["result"])
	})

	t.Run("缺少 network", func(t *testing.T) {
		w, out := f.post(t, "/api/listMethods", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "network is required", out["error"])
	})

	t.Run("未知类别", func(t *testing.T) {
		w, _ := f.post(t, "/api/listMethods", `{"network":"`+knownNetwork+`","type":"bogus"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("端点不可达", func(t *testing.T) {
		w, out := f.post(t, "/api/listMethods", `{"network":"wss://down"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, out["error"], "connection refused")
	})
}

// TestHealthAndMetrics 测试健康检查与指标端点
func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)
	_, _ = f.post(t, "/api", `{"type":"query","namespace":"system","method":"number","network":"`+knownNetwork+`"}`)

	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, []any{knownNetwork}, health["endpoints"])

	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `nodegate_http_requests_total{method="POST",route="/api",status="200"} 1`)
}

// TestRequestID 测试请求 ID 透传
func TestRequestID(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderRequestID, strings.Repeat("x", 200))
	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(middleware.HeaderRequestID), 36, "超长 ID 被替换为 uuid")
}

// TestRecovery 测试 panic 恢复
func TestRecovery(t *testing.T) {
	f := newFixture(t, nil)
	f.server.router.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.Equal(t, 1, f.logs.FilterMessage("处理请求时发生 panic").Len())
}

// TestServer_StartStop 测试监听与优雅关闭
func TestServer_StartStop(t *testing.T) {
	opts := apiconfig.New(nil).GetOptions()
	opts.HTTP.Host = "127.0.0.1"
	opts.HTTP.Port = 0
	f := newFixture(t, opts)

	require.NoError(t, f.server.Start())
	addr := f.server.Addr()
	require.NotNil(t, addr)

	resp, err := http.Post("http://"+addr.String()+"/api/listMethods", "application/json",
		bytes.NewBufferString(`{"network":"`+knownNetwork+`","type":"query"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"result":{"preimage":["preimageFor"],"system":["number"]}}`, string(body))

	require.NoError(t, f.server.Stop(context.Background()))
	_, err = http.Get("http://" + addr.String() + "/health")
	assert.Error(t, err)

	t.Run("端口被占用时返回错误", func(t *testing.T) {
		busy := newFixture(t, opts)
		require.NoError(t, busy.server.Start())
		defer busy.server.Stop(context.Background())

		taken := apiconfig.New(nil).GetOptions()
		taken.HTTP.Host = "127.0.0.1"
		taken.HTTP.Port = busy.server.Addr().(*net.TCPAddr).Port
		assert.Error(t, newFixture(t, taken).server.Start())
	})
}
