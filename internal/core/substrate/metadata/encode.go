package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// encoder 按类型表将 JSON 参数编码为 SCALE 字节
//
// 接受的输入：
//   - 任意类型都可直接传入已编码的 0x 十六进制串
//   - 32 字节数组（账户）可传 SS58 地址
//   - 整数可传数字、十进制或 0x 字符串
//   - 结构体可传对象（字段名大小驼峰均可）或按位置的数组
//   - 枚举可传变体名或 {变体名: 值}，仅含 Id 变体的地址枚举可直接传地址
type encoder struct {
	reg *typeRegistry
	buf bytes.Buffer
	enc *scale.Encoder
}

func newEncoder(reg *typeRegistry) *encoder {
	e := &encoder{reg: reg}
	e.enc = scale.NewEncoder(&e.buf)
	return e
}

// encodeValue 编码单个值
func encodeValue(reg *typeRegistry, id int64, raw json.RawMessage) ([]byte, error) {
	e := newEncoder(reg)
	if err := e.encode(id, raw, 0); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

func (e *encoder) encode(id int64, raw json.RawMessage, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("type nesting exceeds %d", maxDepth)
	}
	t, err := e.reg.lookup(id)
	if err != nil {
		return err
	}

	def := t.Def

	// 预编码的十六进制直接写入，整数与字节类型按值解释
	if s, ok := asString(raw); ok && isHex(s) && !def.IsPrimitive && !def.IsCompact && !e.reg.isBytes(id) {
		b, err := hexutil.Decode(s)
		if err != nil {
			return err
		}
		_, err = e.buf.Write(b)
		return err
	}

	switch {
	case def.IsComposite:
		return e.encodeFields(def.Composite.Fields, raw, depth)
	case def.IsVariant:
		return e.encodeVariant(t, raw, depth)
	case def.IsSequence:
		elem := def.Sequence.Type.Int64()
		if e.reg.isPrimitive(elem, primU8) {
			b, err := bytesArg(raw)
			if err != nil {
				return err
			}
			if err := e.compact(big.NewInt(int64(len(b)))); err != nil {
				return err
			}
			_, err = e.buf.Write(b)
			return err
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("expected array: %w", err)
		}
		if err := e.compact(big.NewInt(int64(len(items)))); err != nil {
			return err
		}
		return e.encodeItems(elem, items, depth)
	case def.IsArray:
		elem := def.Array.Type.Int64()
		n := int(def.Array.Len)
		if e.reg.isPrimitive(elem, primU8) {
			b, err := fixedBytesArg(raw, n)
			if err != nil {
				return err
			}
			_, err = e.buf.Write(b)
			return err
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("expected array: %w", err)
		}
		if len(items) != n {
			return fmt.Errorf("expected %d items, got %d", n, len(items))
		}
		return e.encodeItems(elem, items, depth)
	case def.IsTuple:
		if len(def.Tuple) == 0 {
			return nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("expected array: %w", err)
		}
		if len(items) != len(def.Tuple) {
			return fmt.Errorf("expected %d items, got %d", len(def.Tuple), len(items))
		}
		for i, el := range def.Tuple {
			if err := e.encode(el.Int64(), items[i], depth+1); err != nil {
				return err
			}
		}
		return nil
	case def.IsPrimitive:
		return e.encodePrimitive(uint8(def.Primitive.Si0TypeDefPrimitive), raw)
	case def.IsCompact:
		n, err := intArg(raw)
		if err != nil {
			return err
		}
		if n.Sign() < 0 {
			return fmt.Errorf("compact value must not be negative")
		}
		return e.compact(n)
	default:
		return fmt.Errorf("type %d: unsupported definition", id)
	}
}

func (e *encoder) encodeItems(elem int64, items []json.RawMessage, depth int) error {
	for _, item := range items {
		if err := e.encode(elem, item, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeFields(fields []types.Si1Field, raw json.RawMessage, depth int) error {
	if len(fields) == 0 {
		return nil
	}
	if len(fields) == 1 && !fields[0].HasName {
		return e.encode(fields[0].Type.Int64(), raw, depth+1)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, f := range fields {
			v, ok := lookupField(obj, string(f.Name))
			if !ok {
				return fmt.Errorf("missing field %s", f.Name)
			}
			if err := e.encode(f.Type.Int64(), v, depth+1); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("expected object or array: %w", err)
	}
	if len(items) != len(fields) {
		return fmt.Errorf("expected %d fields, got %d", len(fields), len(items))
	}
	for i, f := range fields {
		if err := e.encode(f.Type.Int64(), items[i], depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeVariant(t *types.Si1Type, raw json.RawMessage, depth int) error {
	variants := t.Def.Variant.Variants

	if isOption(t) {
		if isNullJSON(raw) {
			return e.buf.WriteByte(0)
		}
		for _, v := range variants {
			if len(v.Fields) == 1 {
				if err := e.buf.WriteByte(byte(v.Index)); err != nil {
					return err
				}
				return e.encode(v.Fields[0].Type.Int64(), raw, depth+1)
			}
		}
		return fmt.Errorf("malformed option type")
	}

	name, value := "", json.RawMessage("null")
	if s, ok := asString(raw); ok {
		name = s
	} else {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || len(obj) != 1 {
			return fmt.Errorf("expected variant name or single-key object")
		}
		for k, v := range obj {
			name, value = k, v
		}
	}

	for _, v := range variants {
		if !strings.EqualFold(string(v.Name), name) {
			continue
		}
		if err := e.buf.WriteByte(byte(v.Index)); err != nil {
			return err
		}
		return e.encodeFields(v.Fields, value, depth)
	}

	// MultiAddress 等地址枚举接受裸地址，映射到 Id 变体
	if s, ok := asString(raw); ok {
		for _, v := range variants {
			if string(v.Name) == "Id" && len(v.Fields) == 1 {
				if err := e.buf.WriteByte(byte(v.Index)); err != nil {
					return err
				}
				quoted, _ := json.Marshal(s)
				return e.encode(v.Fields[0].Type.Int64(), quoted, depth+1)
			}
		}
	}
	return fmt.Errorf("unknown variant %q", name)
}

func (e *encoder) encodePrimitive(prim uint8, raw json.RawMessage) error {
	switch prim {
	case primBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("expected bool: %w", err)
		}
		if b {
			return e.buf.WriteByte(1)
		}
		return e.buf.WriteByte(0)
	case primChar:
		s, ok := asString(raw)
		r := []rune(s)
		if !ok || len(r) != 1 {
			return fmt.Errorf("expected single character")
		}
		v := uint32(r[0])
		_, err := e.buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
		return err
	case primStr:
		s, ok := asString(raw)
		if !ok {
			return fmt.Errorf("expected string")
		}
		if err := e.compact(big.NewInt(int64(len(s)))); err != nil {
			return err
		}
		_, err := e.buf.WriteString(s)
		return err
	}

	size, ok := primitiveSize[prim]
	if !ok {
		return fmt.Errorf("unknown primitive %d", prim)
	}
	n, err := intArg(raw)
	if err != nil {
		return err
	}
	signed := prim >= primI8
	bits := uint(size * 8)
	limit := new(big.Int).Lsh(big.NewInt(1), bits)
	if signed {
		half := new(big.Int).Rsh(limit, 1)
		if n.Cmp(half) >= 0 || n.Cmp(new(big.Int).Neg(half)) < 0 {
			return fmt.Errorf("value %s out of range for i%d", n, bits)
		}
		if n.Sign() < 0 {
			n = new(big.Int).Add(n, limit)
		}
	} else if n.Sign() < 0 || n.Cmp(limit) >= 0 {
		return fmt.Errorf("value %s out of range for u%d", n, bits)
	}

	le := make([]byte, size)
	be := n.Bytes()
	for i := range be {
		le[i] = be[len(be)-1-i]
	}
	_, err = e.buf.Write(le)
	return err
}

func (e *encoder) compact(n *big.Int) error {
	return e.enc.EncodeUintCompact(*n)
}

func lookupField(obj map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	for _, k := range []string{name, camelCase(name)} {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func bytesArg(raw json.RawMessage) ([]byte, error) {
	if s, ok := asString(raw); ok {
		if isHex(s) {
			return hexutil.Decode(s)
		}
		return []byte(s), nil
	}
	var nums []int
	if err := json.Unmarshal(raw, &nums); err != nil {
		return nil, fmt.Errorf("expected bytes: %w", err)
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 0xff {
			return nil, fmt.Errorf("byte %d out of range", n)
		}
		out[i] = byte(n)
	}
	return out, nil
}

func fixedBytesArg(raw json.RawMessage, n int) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if s, ok := asString(raw); ok && !isHex(s) && n == 32 {
		b, _, err = DecodeAddress(s)
	} else {
		b, err = bytesArg(raw)
	}
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("expected %d bytes, got %d", n, len(b))
	}
	return b, nil
}

func intArg(raw json.RawMessage) (*big.Int, error) {
	s, ok := asString(raw)
	if !ok {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			return nil, fmt.Errorf("expected integer: %w", err)
		}
		s = num.String()
	}
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func asString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func isHex(s string) bool {
	return strings.HasPrefix(s, "0x") && len(s)%2 == 0
}

func isNullJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
