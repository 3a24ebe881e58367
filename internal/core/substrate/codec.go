package substrate

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// RawCodec 包装 rpc 类别的原始 JSON 结果
type RawCodec struct {
	raw json.RawMessage
}

// 编译时校验
var _ chain.Serializable = RawCodec{}

// NewRawCodec 创建原始结果包装
func NewRawCodec(raw json.RawMessage) RawCodec {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return RawCodec{raw: raw}
}

// Raw 原始 JSON
func (c RawCodec) Raw() json.RawMessage {
	return c.raw
}

// ToHex 结果本身是十六进制字符串时原样返回，否则编码原始 JSON 字节
func (c RawCodec) ToHex() string {
	var s string
	if err := json.Unmarshal(c.raw, &s); err == nil && strings.HasPrefix(s, "0x") {
		if _, err := hexutil.Decode(s); err == nil {
			return s
		}
	}
	return hexutil.Encode(c.raw)
}

// ToJSON 解码为 JSON 兼容值，数值保留为 json.Number
func (c RawCodec) ToJSON() (any, error) {
	dec := json.NewDecoder(bytes.NewReader(c.raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalJSON 原样输出
func (c RawCodec) MarshalJSON() ([]byte, error) {
	return c.raw, nil
}
