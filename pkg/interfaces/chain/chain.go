// Package chain 定义远端链节点句柄的公共接口
//
// 节点句柄由连接层创建，按能力路径（类别.命名空间.方法）暴露可调用能力。
// 能力的具体来源分两类：
//   - rpc 类别：由节点在握手阶段通过 rpc_methods 公布
//   - query/tx/consts/call 类别：由运行时类型系统（RuntimeLoader）基于元数据注册
//
// 本包只描述契约，不包含任何编解码实现。
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Category 能力类别
type Category string

const (
	CategoryQuery  Category = "query"
	CategoryTx     Category = "tx"
	CategoryConsts Category = "consts"
	CategoryRPC    Category = "rpc"
	CategoryCall   Category = "call"
)

// Categories 返回全部合法类别，顺序固定
func Categories() []Category {
	return []Category{CategoryQuery, CategoryTx, CategoryConsts, CategoryRPC, CategoryCall}
}

// ParseCategory 将字符串解析为类别
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// 常见错误
var (
	// ErrNoRuntime 句柄未挂载运行时类型系统
	ErrNoRuntime = errors.New("runtime type system not attached")

	// ErrUnknownCallIndex 元数据中不存在该调用索引
	ErrUnknownCallIndex = errors.New("unknown call index")
)

// Path 能力路径
type Path struct {
	Category  Category
	Namespace string
	Method    string
}

// Valid 三段均非空且类别合法
func (p Path) Valid() bool {
	if _, ok := ParseCategory(string(p.Category)); !ok {
		return false
	}
	return p.Namespace != "" && p.Method != ""
}

func (p Path) String() string {
	return fmt.Sprintf("%s.%s.%s", p.Category, p.Namespace, p.Method)
}

// Capability 可调用能力，参数按位置展开传入
type Capability func(ctx context.Context, params []json.RawMessage) (Codec, error)

// Codec 节点返回值的最小契约
type Codec interface {
	// ToHex 返回值的十六进制编码（0x 前缀）
	ToHex() string
}

// Serializable 可转换为 JSON 兼容树的值
type Serializable interface {
	Codec
	ToJSON() (any, error)
}

// Option 可选值包装
type Option interface {
	Codec
	IsSome() bool
	Unwrap() Codec
}

// CallMeta 调用索引解析出的元信息
type CallMeta struct {
	Section string  // 所属 pallet
	Name    string  // 调用名
	Index   [2]byte // 原始调用索引
}

// CapabilitySet 只读能力集合
type CapabilitySet interface {
	Lookup(path Path) (Capability, bool)
	Namespaces(category Category) []string
	Methods(category Category, namespace string) []string
}

// Handle 节点句柄
type Handle interface {
	// Endpoint 句柄对应的网络端点
	Endpoint() string

	// RuntimeVersion 运行时版本标识，形如 specName-specVersion
	RuntimeVersion() string

	// Capabilities 当前句柄可用的能力集合
	Capabilities() CapabilitySet

	// At 返回固定在指定区块的历史视图句柄
	At(ctx context.Context, blockHash string) (Handle, error)

	// CreateType 按类型名解码十六进制载荷
	CreateType(typeName string, hex string) (Codec, error)

	// FindMetaCall 根据调用索引查找调用元信息
	FindMetaCall(callIndex []byte) (*CallMeta, error)

	// Close 释放底层连接
	Close() error
}

// Connector 创建节点句柄
type Connector interface {
	Connect(ctx context.Context, endpoint string) (Handle, error)
}
