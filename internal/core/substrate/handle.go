package substrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/nodegate/internal/core/capability"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// blockHashLen 区块哈希字节长度
const blockHashLen = 32

// Handle 节点句柄
//
// 根句柄持有会话，Close 时关闭连接；At 派生出的历史视图共享同一会话，
// 其 Close 不做任何事。
type Handle struct {
	endpoint string
	session  *Session
	registry *capability.Registry
	runtime  chain.Runtime
	version  string
	at       string
}

// 编译时校验
var _ chain.Handle = (*Handle)(nil)

// Endpoint 网络端点
func (h *Handle) Endpoint() string {
	return h.endpoint
}

// RuntimeVersion 运行时版本
func (h *Handle) RuntimeVersion() string {
	return h.version
}

// BlockHash 历史视图所固定的区块，根句柄为空
func (h *Handle) BlockHash() string {
	return h.at
}

// Capabilities 能力集合
func (h *Handle) Capabilities() chain.CapabilitySet {
	return h.registry
}

// At 返回固定在指定区块的视图
//
// 视图只包含运行时类别的能力，rpc 类别不随区块固定，不出现在视图中。
func (h *Handle) At(ctx context.Context, blockHash string) (chain.Handle, error) {
	b, err := hexutil.Decode(blockHash)
	if err != nil || len(b) != blockHashLen {
		return nil, fmt.Errorf("invalid block hash %q", blockHash)
	}

	header, err := h.session.Call(ctx, "chain_getHeader", blockHash)
	if err != nil {
		return nil, err
	}
	if isNull(header) {
		return nil, fmt.Errorf("block %s not found", blockHash)
	}

	version, err := fetchRuntimeVersion(ctx, h.session, blockHash)
	if err != nil {
		return nil, err
	}

	scoped := &Handle{
		endpoint: h.endpoint,
		session:  h.session,
		registry: capability.NewRegistry(),
		version:  version,
		at:       blockHash,
	}
	if h.runtime != nil {
		rt, err := h.runtime.At(ctx, blockHash, h.session)
		if err != nil {
			return nil, fmt.Errorf("scope runtime at %s: %w", blockHash, err)
		}
		if err := rt.Register(scoped.registry); err != nil {
			return nil, fmt.Errorf("register runtime capabilities: %w", err)
		}
		scoped.runtime = rt
	}
	return scoped, nil
}

// CreateType 按类型名解码
func (h *Handle) CreateType(typeName string, hex string) (chain.Codec, error) {
	if h.runtime == nil {
		return nil, chain.ErrNoRuntime
	}
	return h.runtime.CreateType(typeName, hex)
}

// FindMetaCall 查找调用元信息
func (h *Handle) FindMetaCall(callIndex []byte) (*chain.CallMeta, error) {
	if h.runtime == nil {
		return nil, chain.ErrNoRuntime
	}
	return h.runtime.FindMetaCall(callIndex)
}

// Close 关闭根句柄的会话
func (h *Handle) Close() error {
	if h.at != "" {
		return nil
	}
	return h.session.Close()
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

type runtimeVersion struct {
	SpecName    string `json:"specName"`
	SpecVersion uint32 `json:"specVersion"`
}

func fetchRuntimeVersion(ctx context.Context, s *Session, at ...any) (string, error) {
	raw, err := s.Call(ctx, "state_getRuntimeVersion", at...)
	if err != nil {
		return "", err
	}
	var rv runtimeVersion
	if err := json.Unmarshal(raw, &rv); err != nil {
		return "", fmt.Errorf("decode runtime version: %w", err)
	}
	return fmt.Sprintf("%s-%d", rv.SpecName, rv.SpecVersion), nil
}
