package substrate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

const (
	knownBlock   = "0x1111111111111111111111111111111111111111111111111111111111111111"
	unknownBlock = "0x2222222222222222222222222222222222222222222222222222222222222222"
)

type rpcHandler func(params []json.RawMessage) (any, *RPCError)

// fakeNode 模拟节点的 WebSocket JSON-RPC 服务
type fakeNode struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    map[string]int
	conns    []*websocket.Conn
	dials    int
}

func newFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	f := &fakeNode{
		handlers: map[string]rpcHandler{},
		calls:    map[string]int{},
	}
	f.handle("rpc_methods", func([]json.RawMessage) (any, *RPCError) {
		return map[string]any{
			"version": 1,
			"methods": []string{"rpc_methods", "chain_getHeader", "chain_getBlockHash", "state_getMetadata", "state_getRuntimeVersion", "author_submitExtrinsic", "nounderscore"},
		}, nil
	})
	f.handle("state_getRuntimeVersion", func(params []json.RawMessage) (any, *RPCError) {
		version := 1000001
		if len(params) == 1 && strings.Contains(string(params[0]), knownBlock) {
			version = 9430
		}
		return map[string]any{"specName": "polkadot", "specVersion": version}, nil
	})
	f.handle("chain_getHeader", func(params []json.RawMessage) (any, *RPCError) {
		if len(params) == 1 && strings.Contains(string(params[0]), knownBlock) {
			return map[string]any{"number": "0x10"}, nil
		}
		return nil, nil
	})
	f.handle("chain_getBlockHash", func([]json.RawMessage) (any, *RPCError) {
		return knownBlock, nil
	})
	f.handle("state_getMetadata", func([]json.RawMessage) (any, *RPCError) {
		return "0x6d657461", nil
	})

	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeNode) handle(method string, h rpcHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeNode) URL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeNode) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeNode) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

// dropAll 服务端主动断开全部连接
func (f *fakeNode) dropAll() {
	f.mu.Lock()
	conns := f.conns
	f.conns = nil
	f.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (f *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.dials++
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	var writeMu sync.Mutex
	for {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		f.mu.Lock()
		f.calls[req.Method]++
		h, ok := f.handlers[req.Method]
		f.mu.Unlock()

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if !ok {
			resp["error"] = &RPCError{Code: -32601, Message: "Method not found"}
		} else if result, rpcErr := h(req.Params); rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		writeMu.Lock()
		err := conn.WriteJSON(resp)
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

type hexCodec string

func (h hexCodec) ToHex() string { return string(h) }

// fakeRuntime 最小运行时，用于验证加载与历史视图
type fakeRuntime struct {
	metadata []byte
	at       string
}

func (r *fakeRuntime) Register(reg chain.Registrar) error {
	at := r.at
	return reg.Register(chain.Path{Category: chain.CategoryQuery, Namespace: "system", Method: "number"},
		func(context.Context, []json.RawMessage) (chain.Codec, error) {
			if at != "" {
				return hexCodec("0x10"), nil
			}
			return hexCodec("0xff"), nil
		})
}

func (r *fakeRuntime) CreateType(typeName string, hex string) (chain.Codec, error) {
	return hexCodec(hex), nil
}

func (r *fakeRuntime) FindMetaCall(idx []byte) (*chain.CallMeta, error) {
	return &chain.CallMeta{Section: "balances", Name: "transfer"}, nil
}

func (r *fakeRuntime) At(_ context.Context, blockHash string, _ chain.RPCCaller) (chain.Runtime, error) {
	return &fakeRuntime{metadata: r.metadata, at: blockHash}, nil
}

type fakeLoader struct {
	got []byte
}

func (l *fakeLoader) Load(_ context.Context, metadata []byte, _ chain.RPCCaller) (chain.Runtime, error) {
	l.got = metadata
	return &fakeRuntime{metadata: metadata}, nil
}
