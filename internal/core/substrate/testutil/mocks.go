// Package testutil 提供节点句柄相关的测试替身
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/weisyn/nodegate/internal/core/capability"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// HexCodec 只支持 ToHex 的返回值
type HexCodec string

// ToHex 实现 chain.Codec
func (h HexCodec) ToHex() string { return string(h) }

// JSONCodec 可序列化的返回值
type JSONCodec struct {
	Hex   string
	Value any
	Err   error // ToJSON 返回的错误
}

// ToHex 实现 chain.Codec
func (c JSONCodec) ToHex() string { return c.Hex }

// ToJSON 实现 chain.Serializable
func (c JSONCodec) ToJSON() (any, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Value, nil
}

// MockOption 可选值
type MockOption struct {
	Inner chain.Codec // nil 表示 None
}

// ToHex 实现 chain.Codec
func (o MockOption) ToHex() string {
	if o.Inner == nil {
		return "0x00"
	}
	return "0x01" + o.Inner.ToHex()[2:]
}

// IsSome 实现 chain.Option
func (o MockOption) IsSome() bool { return o.Inner != nil }

// Unwrap 实现 chain.Option
func (o MockOption) Unwrap() chain.Codec { return o.Inner }

// MockHandle 可编程的节点句柄
type MockHandle struct {
	endpoint string
	version  string
	registry *capability.Registry

	mu          sync.Mutex
	calls       map[string]int
	metas       map[[2]byte]*chain.CallMeta
	createType  func(typeName, hex string) (chain.Codec, error)
	createCalls int
	scoped      map[string]*MockHandle

	closed atomic.Int32
}

var _ chain.Handle = (*MockHandle)(nil)

// NewMockHandle 创建句柄
func NewMockHandle(endpoint, version string) *MockHandle {
	return &MockHandle{
		endpoint: endpoint,
		version:  version,
		registry: capability.NewRegistry(),
		calls:    make(map[string]int),
		metas:    make(map[[2]byte]*chain.CallMeta),
		scoped:   make(map[string]*MockHandle),
	}
}

// Register 注册能力，返回值由 fn 决定，并记录调用次数
func (h *MockHandle) Register(category chain.Category, ns, method string, fn func(params []json.RawMessage) (chain.Codec, error)) *MockHandle {
	return h.RegisterContext(category, ns, method, func(ctx context.Context, params []json.RawMessage) (chain.Codec, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn(params)
	})
}

// RegisterContext 注册接收上下文的能力
func (h *MockHandle) RegisterContext(category chain.Category, ns, method string, fn chain.Capability) *MockHandle {
	path := chain.Path{Category: category, Namespace: ns, Method: method}
	err := h.registry.Register(path, func(ctx context.Context, params []json.RawMessage) (chain.Codec, error) {
		h.mu.Lock()
		h.calls[path.String()]++
		h.mu.Unlock()
		return fn(ctx, params)
	})
	if err != nil {
		panic(err)
	}
	return h
}

// Returning 注册返回固定值的能力
func (h *MockHandle) Returning(category chain.Category, ns, method string, v chain.Codec) *MockHandle {
	return h.Register(category, ns, method, func([]json.RawMessage) (chain.Codec, error) {
		return v, nil
	})
}

// WithMeta 添加调用索引元信息
func (h *MockHandle) WithMeta(idx [2]byte, section, name string) *MockHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metas[idx] = &chain.CallMeta{Section: section, Name: name, Index: idx}
	return h
}

// WithCreateType 设置类型解码函数
func (h *MockHandle) WithCreateType(fn func(typeName, hex string) (chain.Codec, error)) *MockHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.createType = fn
	return h
}

// WithScoped 设置指定区块的历史视图
func (h *MockHandle) WithScoped(blockHash string, scoped *MockHandle) *MockHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scoped[blockHash] = scoped
	return h
}

// Calls 能力被调用的次数
func (h *MockHandle) Calls(path chain.Path) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[path.String()]
}

// TotalCalls 全部能力调用次数
func (h *MockHandle) TotalCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		n += c
	}
	return n
}

// CreateTypeCalls CreateType 调用次数
func (h *MockHandle) CreateTypeCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.createCalls
}

// Closed 是否已关闭
func (h *MockHandle) Closed() bool { return h.closed.Load() > 0 }

// Endpoint 实现 chain.Handle
func (h *MockHandle) Endpoint() string { return h.endpoint }

// RuntimeVersion 实现 chain.Handle
func (h *MockHandle) RuntimeVersion() string { return h.version }

// Capabilities 实现 chain.Handle
func (h *MockHandle) Capabilities() chain.CapabilitySet { return h.registry }

// At 实现 chain.Handle
func (h *MockHandle) At(ctx context.Context, blockHash string) (chain.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	scoped, ok := h.scoped[blockHash]
	if !ok {
		return nil, fmt.Errorf("block %s not found", blockHash)
	}
	return scoped, nil
}

// CreateType 实现 chain.Handle
func (h *MockHandle) CreateType(typeName string, hex string) (chain.Codec, error) {
	h.mu.Lock()
	h.createCalls++
	fn := h.createType
	h.mu.Unlock()
	if fn == nil {
		return nil, chain.ErrNoRuntime
	}
	return fn(typeName, hex)
}

// FindMetaCall 实现 chain.Handle
func (h *MockHandle) FindMetaCall(callIndex []byte) (*chain.CallMeta, error) {
	if len(callIndex) != 2 {
		return nil, errors.New("bad call index length")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	meta, ok := h.metas[[2]byte{callIndex[0], callIndex[1]}]
	if !ok {
		return nil, chain.ErrUnknownCallIndex
	}
	return meta, nil
}

// Close 实现 chain.Handle
func (h *MockHandle) Close() error {
	h.closed.Add(1)
	return nil
}

// MockConnector 可编程的连接器
type MockConnector struct {
	mu      sync.Mutex
	connect func(ctx context.Context, endpoint string) (chain.Handle, error)
	count   map[string]int
}

var _ chain.Connector = (*MockConnector)(nil)

// NewMockConnector 创建连接器，fn 决定每次连接的结果
func NewMockConnector(fn func(ctx context.Context, endpoint string) (chain.Handle, error)) *MockConnector {
	return &MockConnector{connect: fn, count: make(map[string]int)}
}

// Connect 实现 chain.Connector
func (c *MockConnector) Connect(ctx context.Context, endpoint string) (chain.Handle, error) {
	c.mu.Lock()
	c.count[endpoint]++
	c.mu.Unlock()
	return c.connect(ctx, endpoint)
}

// Count 端点的连接次数
func (c *MockConnector) Count(endpoint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count[endpoint]
}
