package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// maxDepth 类型嵌套深度上限
const maxDepth = 64

// ErrTrailingBytes 解码完成后仍有剩余字节
var ErrTrailingBytes = errors.New("trailing bytes after value")

// decoder 基于类型表将 SCALE 字节解码为 JSON 兼容值
//
// 输出约定：
//   - 整数为 json.Number，字节序列为 0x 十六进制字符串
//   - 命名字段的结构体为对象，字段名转为小驼峰
//   - Option 为 null 或内部值
//   - 全部为单元变体的枚举输出变体名，其余输出 {变体名: 值}
//   - 运行时调用输出 {callIndex, args}
type decoder struct {
	reg *typeRegistry
	buf *bytes.Reader
	dec *scale.Decoder
}

func newDecoder(reg *typeRegistry, data []byte) *decoder {
	buf := bytes.NewReader(data)
	return &decoder{reg: reg, buf: buf, dec: scale.NewDecoder(buf)}
}

// decodeValue 解码整个字节串，不允许剩余
func decodeValue(reg *typeRegistry, id int64, data []byte) (any, error) {
	d := newDecoder(reg, data)
	v, err := d.decode(id, 0)
	if err != nil {
		return nil, err
	}
	if d.buf.Len() != 0 {
		return nil, fmt.Errorf("%w: %d", ErrTrailingBytes, d.buf.Len())
	}
	return v, nil
}

func (d *decoder) decode(id int64, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("type nesting exceeds %d", maxDepth)
	}
	if _, ok := d.reg.outerCall[id]; ok {
		return d.decodeCall(depth)
	}

	t, err := d.reg.lookup(id)
	if err != nil {
		return nil, err
	}
	def := t.Def
	switch {
	case def.IsComposite:
		return d.decodeFields(def.Composite.Fields, depth)
	case def.IsVariant:
		return d.decodeVariant(t, depth)
	case def.IsSequence:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		return d.decodeList(def.Sequence.Type.Int64(), n, depth)
	case def.IsArray:
		return d.decodeList(def.Array.Type.Int64(), int(def.Array.Len), depth)
	case def.IsTuple:
		if len(def.Tuple) == 0 {
			return nil, nil
		}
		out := make([]any, 0, len(def.Tuple))
		for _, el := range def.Tuple {
			v, err := d.decode(el.Int64(), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case def.IsPrimitive:
		return d.decodePrimitive(uint8(def.Primitive.Si0TypeDefPrimitive))
	case def.IsCompact:
		n, err := d.dec.DecodeUintCompact()
		if err != nil {
			return nil, err
		}
		return json.Number(n.String()), nil
	case def.IsBitSequence:
		bits, err := d.dec.DecodeUintCompact()
		if err != nil {
			return nil, err
		}
		n := new(big.Int).Add(bits, big.NewInt(7))
		n.Rsh(n, 3)
		if !n.IsInt64() {
			return nil, fmt.Errorf("bit sequence length %s too large", bits)
		}
		return d.readHex(int(n.Int64()))
	default:
		return nil, fmt.Errorf("type %d: unsupported definition", id)
	}
}

func (d *decoder) decodeFields(fields []types.Si1Field, depth int) (any, error) {
	switch {
	case len(fields) == 0:
		return map[string]any{}, nil
	case len(fields) == 1 && !fields[0].HasName:
		return d.decode(fields[0].Type.Int64(), depth+1)
	case !fields[0].HasName:
		out := make([]any, 0, len(fields))
		for _, f := range fields {
			v, err := d.decode(f.Type.Int64(), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := d.decode(f.Type.Int64(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out[camelCase(string(f.Name))] = v
	}
	return out, nil
}

func (d *decoder) decodeVariant(t *types.Si1Type, depth int) (any, error) {
	idx, err := d.dec.ReadOneByte()
	if err != nil {
		return nil, err
	}
	var variant *types.Si1Variant
	basic := true
	for i := range t.Def.Variant.Variants {
		v := &t.Def.Variant.Variants[i]
		if uint8(v.Index) == idx {
			variant = v
		}
		if len(v.Fields) > 0 {
			basic = false
		}
	}
	if variant == nil {
		return nil, fmt.Errorf("variant index %d not found", idx)
	}

	if isOption(t) {
		if len(variant.Fields) == 0 {
			return nil, nil
		}
		return d.decode(variant.Fields[0].Type.Int64(), depth+1)
	}
	if basic {
		return string(variant.Name), nil
	}
	inner, err := d.decodeFields(variant.Fields, depth)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", variant.Name, err)
	}
	if len(variant.Fields) == 0 {
		inner = nil
	}
	return map[string]any{lowerFirst(string(variant.Name)): inner}, nil
}

// decodeCall 解码运行时调用：pallet 索引 + 调用索引 + 参数
func (d *decoder) decodeCall(depth int) (any, error) {
	idx, err := d.read(2)
	if err != nil {
		return nil, err
	}
	_, variant, err := d.reg.callVariant(idx[0], idx[1])
	if err != nil {
		return nil, err
	}
	args := make(map[string]any, len(variant.Fields))
	for i, f := range variant.Fields {
		name := camelCase(string(f.Name))
		if !f.HasName {
			name = fmt.Sprintf("arg%d", i)
		}
		v, err := d.decode(f.Type.Int64(), depth+1)
		if err != nil {
			return nil, fmt.Errorf("call %s arg %s: %w", variant.Name, name, err)
		}
		args[name] = v
	}
	return map[string]any{
		"callIndex": hexutil.Encode(idx),
		"args":      args,
	}, nil
}

func (d *decoder) decodeList(elem int64, n int, depth int) (any, error) {
	if d.reg.isPrimitive(elem, primU8) {
		return d.readHex(n)
	}
	out := make([]any, 0, min(n, d.buf.Len()))
	for i := 0; i < n; i++ {
		v, err := d.decode(elem, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) decodePrimitive(prim uint8) (any, error) {
	switch prim {
	case primBool:
		b, err := d.dec.ReadOneByte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case primChar:
		b, err := d.read(4)
		if err != nil {
			return nil, err
		}
		r := rune(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		if !utf8.ValidRune(r) {
			return nil, fmt.Errorf("invalid char %d", r)
		}
		return string(r), nil
	case primStr:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		b, err := d.read(n)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}

	size, ok := primitiveSize[prim]
	if !ok {
		return nil, fmt.Errorf("unknown primitive %d", prim)
	}
	b, err := d.read(size)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(reverse(b))
	if prim >= primI8 && b[size-1]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	}
	return json.Number(n.String()), nil
}

// length 读取 compact 长度前缀，超过剩余字节数视为损坏
func (d *decoder) length() (int, error) {
	n, err := d.dec.DecodeUintCompact()
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() > int64(d.buf.Len()) {
		return 0, fmt.Errorf("length %s exceeds remaining %d bytes", n, d.buf.Len())
	}
	return int(n.Int64()), nil
}

func (d *decoder) readHex(n int) (string, error) {
	b, err := d.read(n)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(b), nil
}

// read 读取定长字节，长度为 0 时不触碰底层读取器
func (d *decoder) read(n int) ([]byte, error) {
	if n > d.buf.Len() {
		return nil, fmt.Errorf("need %d bytes, have %d", n, d.buf.Len())
	}
	b := make([]byte, n)
	if n == 0 {
		return b, nil
	}
	if err := d.dec.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
