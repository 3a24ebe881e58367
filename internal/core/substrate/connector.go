package substrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/nodegate/internal/core/capability"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/log"
)

// Options 连接器参数
type Options struct {
	HandshakeTimeout time.Duration       // WebSocket 握手超时
	ReadLimit        int64               // 单条消息最大字节数，元数据通常在 MB 级别
	Loader           chain.RuntimeLoader // 可选的运行时类型系统
	Logger           log.Logger
}

// Connector 建立会话并完成能力发现
type Connector struct {
	opts Options
}

// 编译时校验
var _ chain.Connector = (*Connector)(nil)

// NewConnector 创建连接器
func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts}
}

type methodsResult struct {
	Methods []string `json:"methods"`
}

// Connect 拨号并完成一次性发现握手
//
// 握手顺序：rpc_methods → state_getRuntimeVersion → state_getMetadata（仅在配置了运行时加载器时）。
// 任一步失败都会关闭会话并返回错误。
func (c *Connector) Connect(ctx context.Context, endpoint string) (chain.Handle, error) {
	session, err := Dial(ctx, endpoint, SessionOptions{
		HandshakeTimeout: c.opts.HandshakeTimeout,
		ReadLimit:        c.opts.ReadLimit,
		Logger:           c.opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	h, err := c.handshake(ctx, session)
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("handshake %s: %w", endpoint, err)
	}
	return h, nil
}

func (c *Connector) handshake(ctx context.Context, session *Session) (*Handle, error) {
	reg := capability.NewRegistry()

	raw, err := session.Call(ctx, "rpc_methods")
	if err != nil {
		return nil, err
	}
	var methods methodsResult
	if err := json.Unmarshal(raw, &methods); err != nil {
		return nil, fmt.Errorf("decode rpc_methods: %w", err)
	}
	for _, name := range methods.Methods {
		ns, method, ok := strings.Cut(name, "_")
		if !ok || ns == "" || method == "" {
			continue
		}
		_ = reg.Register(chain.Path{Category: chain.CategoryRPC, Namespace: ns, Method: method}, rpcCapability(session, name))
	}

	version, err := fetchRuntimeVersion(ctx, session)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		endpoint: session.Endpoint(),
		session:  session,
		registry: reg,
		version:  version,
	}

	if c.opts.Loader == nil {
		return h, nil
	}

	raw, err = session.Call(ctx, "state_getMetadata")
	if err != nil {
		return nil, err
	}
	var metaHex string
	if err := json.Unmarshal(raw, &metaHex); err != nil {
		return nil, fmt.Errorf("decode state_getMetadata: %w", err)
	}
	metadata, err := hexutil.Decode(metaHex)
	if err != nil {
		return nil, fmt.Errorf("decode metadata hex: %w", err)
	}

	rt, err := c.opts.Loader.Load(ctx, metadata, session)
	if err != nil {
		return nil, fmt.Errorf("load runtime: %w", err)
	}
	if err := rt.Register(reg); err != nil {
		return nil, fmt.Errorf("register runtime capabilities: %w", err)
	}
	h.runtime = rt
	return h, nil
}

func rpcCapability(session *Session, method string) chain.Capability {
	return func(ctx context.Context, params []json.RawMessage) (chain.Codec, error) {
		args := make([]any, len(params))
		for i, p := range params {
			args[i] = p
		}
		raw, err := session.Call(ctx, method, args...)
		if err != nil {
			return nil, err
		}
		return NewRawCodec(raw), nil
	}
}
