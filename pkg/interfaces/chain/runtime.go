package chain

import (
	"context"
	"encoding/json"
)

// RPCCaller 原始 JSON-RPC 调用能力，由会话层提供给运行时
type RPCCaller interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Registrar 运行时注册能力的入口
type Registrar interface {
	Register(path Path, fn Capability) error
}

// Runtime 基于元数据构建的运行时类型系统
type Runtime interface {
	// Register 将 query/tx/consts/call 类别的能力注册到 reg
	Register(reg Registrar) error

	// CreateType 按类型名解码十六进制载荷
	CreateType(typeName string, hex string) (Codec, error)

	// FindMetaCall 根据调用索引查找调用元信息
	FindMetaCall(callIndex []byte) (*CallMeta, error)

	// At 返回固定在指定区块的运行时视图
	At(ctx context.Context, blockHash string, caller RPCCaller) (Runtime, error)
}

// RuntimeLoader 由原始元数据构建运行时
type RuntimeLoader interface {
	Load(ctx context.Context, metadata []byte, caller RPCCaller) (Runtime, error)
}
