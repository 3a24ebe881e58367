package metadata

import (
	"encoding/json"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// 编译时校验
var (
	_ chain.Serializable = (*Value)(nil)
	_ chain.Serializable = (*Call)(nil)
	_ chain.Option       = (*Option)(nil)
)

// Value 按类型解码的值
type Value struct {
	raw   []byte
	value any
	bytes bool
}

// ToHex 字节类型返回内容本身（不含长度前缀），其余返回 SCALE 编码
func (v *Value) ToHex() string {
	if s, ok := v.value.(string); ok && v.bytes {
		return s
	}
	return hexutil.Encode(v.raw)
}

// ToJSON 实现 chain.Serializable
func (v *Value) ToJSON() (any, error) {
	return v.value, nil
}

// MarshalJSON 输出解码后的值
func (v *Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.value)
}

// Option 可选存储项的查询结果
type Option struct {
	inner *Value
}

// IsSome 实现 chain.Option
func (o *Option) IsSome() bool {
	return o.inner != nil
}

// Unwrap 实现 chain.Option，None 时返回 nil
func (o *Option) Unwrap() chain.Codec {
	if o.inner == nil {
		return nil
	}
	return o.inner
}

// ToHex None 为 0x，Some 为内部值的 SCALE 编码
func (o *Option) ToHex() string {
	if o.inner == nil {
		return "0x"
	}
	return hexutil.Encode(o.inner.raw)
}

// ToJSON None 为 null，Some 为内部值
func (o *Option) ToJSON() (any, error) {
	if o.inner == nil {
		return nil, nil
	}
	return o.inner.value, nil
}

// Call 运行时调用
type Call struct {
	call  types.Call
	value any
}

// CallIndex 调用索引
func (c *Call) CallIndex() types.CallIndex {
	return c.call.CallIndex
}

// ToHex 调用索引与参数的 SCALE 编码
func (c *Call) ToHex() string {
	b := append([]byte{c.call.CallIndex.SectionIndex, c.call.CallIndex.MethodIndex}, c.call.Args...)
	return hexutil.Encode(b)
}

// ToJSON 输出 {callIndex, args}
func (c *Call) ToJSON() (any, error) {
	return c.value, nil
}

// MarshalJSON 输出 {callIndex, args}
func (c *Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value)
}
