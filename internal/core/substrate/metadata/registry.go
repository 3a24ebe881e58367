package metadata

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// 基础类型在 scale-info 中的枚举序号
const (
	primBool uint8 = iota
	primChar
	primStr
	primU8
	primU16
	primU32
	primU64
	primU128
	primU256
	primI8
	primI16
	primI32
	primI64
	primI128
	primI256
)

// primitiveSize 定长整数类型的字节数
var primitiveSize = map[uint8]int{
	primU8: 1, primU16: 2, primU32: 4, primU64: 8, primU128: 16, primU256: 32,
	primI8: 1, primI16: 2, primI32: 4, primI64: 8, primI128: 16, primI256: 32,
}

// typeRegistry V14 元数据的类型索引
type typeRegistry struct {
	meta      *types.Metadata
	types     map[int64]*types.Si1Type
	pallets   map[uint8]*types.PalletMetadataV14
	callTypes map[int64]uint8 // pallet 调用枚举类型 -> pallet 索引
	outerCall map[int64]struct{}
}

func newTypeRegistry(meta *types.Metadata) (*typeRegistry, error) {
	if meta.Version != 14 {
		return nil, fmt.Errorf("unsupported metadata version %d", meta.Version)
	}
	v14 := &meta.AsMetadataV14

	r := &typeRegistry{
		meta:      meta,
		types:     make(map[int64]*types.Si1Type, len(v14.Lookup.Types)),
		pallets:   make(map[uint8]*types.PalletMetadataV14, len(v14.Pallets)),
		callTypes: make(map[int64]uint8),
		outerCall: make(map[int64]struct{}),
	}
	for i := range v14.Lookup.Types {
		t := &v14.Lookup.Types[i]
		r.types[t.ID.Int64()] = &t.Type
	}
	for i := range v14.Pallets {
		p := &v14.Pallets[i]
		r.pallets[uint8(p.Index)] = p
		if p.HasCalls {
			r.callTypes[p.Calls.Type.Int64()] = uint8(p.Index)
		}
	}

	// 外层调用枚举：每个变体恰好包裹一个 pallet 调用枚举，变体序号即 pallet 索引
	for id, t := range r.types {
		if !t.Def.IsVariant || len(t.Def.Variant.Variants) == 0 {
			continue
		}
		outer := true
		for _, v := range t.Def.Variant.Variants {
			if len(v.Fields) != 1 {
				outer = false
				break
			}
			if _, ok := r.callTypes[v.Fields[0].Type.Int64()]; !ok {
				outer = false
				break
			}
		}
		if outer {
			r.outerCall[id] = struct{}{}
		}
	}
	return r, nil
}

func (r *typeRegistry) lookup(id int64) (*types.Si1Type, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, fmt.Errorf("type %d not found in metadata", id)
	}
	return t, nil
}

// callVariant 按调用索引查找 pallet 与调用变体
func (r *typeRegistry) callVariant(palletIdx, callIdx uint8) (*types.PalletMetadataV14, *types.Si1Variant, error) {
	p, ok := r.pallets[palletIdx]
	if !ok || !p.HasCalls {
		return nil, nil, fmt.Errorf("pallet %d has no calls", palletIdx)
	}
	t, err := r.lookup(p.Calls.Type.Int64())
	if err != nil {
		return nil, nil, err
	}
	for i := range t.Def.Variant.Variants {
		v := &t.Def.Variant.Variants[i]
		if uint8(v.Index) == callIdx {
			return p, v, nil
		}
	}
	return nil, nil, fmt.Errorf("call %d not found in pallet %s", callIdx, p.Name)
}

// isBytes 类型是否为 u8 序列或 u8 数组，单字段复合类型会被穿透
func (r *typeRegistry) isBytes(id int64) bool {
	for depth := 0; depth < maxDepth; depth++ {
		t, err := r.lookup(id)
		if err != nil {
			return false
		}
		switch {
		case t.Def.IsSequence:
			return r.isPrimitive(t.Def.Sequence.Type.Int64(), primU8)
		case t.Def.IsArray:
			return r.isPrimitive(t.Def.Array.Type.Int64(), primU8)
		case t.Def.IsComposite && len(t.Def.Composite.Fields) == 1:
			id = t.Def.Composite.Fields[0].Type.Int64()
		default:
			return false
		}
	}
	return false
}

func (r *typeRegistry) isPrimitive(id int64, prim uint8) bool {
	t, err := r.lookup(id)
	if err != nil {
		return false
	}
	return t.Def.IsPrimitive && uint8(t.Def.Primitive.Si0TypeDefPrimitive) == prim
}

// isOption 类型路径为 Option
func isOption(t *types.Si1Type) bool {
	return len(t.Path) > 0 && string(t.Path[len(t.Path)-1]) == "Option"
}

// lowerFirst 元数据名称转为首字母小写，如 System -> system
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// camelCase 下划线命名转为小驼峰，如 transfer_keep_alive -> transferKeepAlive
func camelCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 || b.Len() == 0 {
			b.WriteString(lowerFirst(p))
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// typeByName 按类型路径末段查找，存在同名类型时取编号最小者
func (r *typeRegistry) typeByName(name string) (int64, bool) {
	found, best := false, int64(0)
	for id, t := range r.types {
		if len(t.Path) == 0 || string(t.Path[len(t.Path)-1]) != name {
			continue
		}
		if !found || id < best {
			found, best = true, id
		}
	}
	return best, found
}
