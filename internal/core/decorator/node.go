// Package decorator 提供解码调用树的表示与调用索引装饰
//
// 解码后的调用以 JSON 兼容树表示（Node），对象字段保持原始顺序，
// 数值以 json.Number 保存，避免大整数精度丢失。
package decorator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
)

// Kind 节点类型
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ErrCyclic 输入值存在环
var ErrCyclic = errors.New("cyclic value")

// Field 对象字段
type Field struct {
	Key   string
	Value *Node
}

// Node JSON 兼容树节点
type Node struct {
	kind   Kind
	scalar any // string | bool | json.Number
	fields []Field
	items  []*Node
}

// Null 空节点
func Null() *Node { return &Node{kind: KindNull} }

// String 字符串节点
func String(s string) *Node { return &Node{kind: KindScalar, scalar: s} }

// Bool 布尔节点
func Bool(b bool) *Node { return &Node{kind: KindScalar, scalar: b} }

// Number 数值节点
func Number(n json.Number) *Node { return &Node{kind: KindScalar, scalar: n} }

// Object 对象节点
func Object(fields ...Field) *Node {
	n := &Node{kind: KindObject}
	for _, f := range fields {
		n.Set(f.Key, f.Value)
	}
	return n
}

// Array 数组节点
func Array(items ...*Node) *Node {
	return &Node{kind: KindArray, items: append([]*Node{}, items...)}
}

// Kind 返回节点类型
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// Scalar 返回标量值
func (n *Node) Scalar() any {
	if n.Kind() != KindScalar {
		return nil
	}
	return n.scalar
}

// AsString 节点为字符串时返回其值
func (n *Node) AsString() (string, bool) {
	if n.Kind() != KindScalar {
		return "", false
	}
	s, ok := n.scalar.(string)
	return s, ok
}

// Fields 对象字段（按插入顺序）
func (n *Node) Fields() []Field {
	if n.Kind() != KindObject {
		return nil
	}
	return n.fields
}

// Items 数组元素
func (n *Node) Items() []*Node {
	if n.Kind() != KindArray {
		return nil
	}
	return n.items
}

// Get 读取对象字段
func (n *Node) Get(key string) (*Node, bool) {
	for _, f := range n.Fields() {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set 写入对象字段，已存在则原位替换
func (n *Node) Set(key string, value *Node) {
	if n.Kind() != KindObject {
		return
	}
	if value == nil {
		value = Null()
	}
	for i := range n.fields {
		if n.fields[i].Key == key {
			n.fields[i].Value = value
			return
		}
	}
	n.fields = append(n.fields, Field{Key: key, Value: value})
}

// MarshalJSON 按字段顺序输出
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	switch n.Kind() {
	case KindNull:
		buf.WriteString("null")
	case KindScalar:
		b, err := json.Marshal(n.scalar)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindObject:
		buf.WriteByte('{')
		for i, f := range n.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}

// Parse 从 JSON 文本构建树，保留字段顺序
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return n, nil
}

func parseValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case json.Number:
		return Number(v), nil
	case json.Delim:
		switch v {
		case '{':
			obj := Object()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := Array()
			for dec.More() {
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				arr.items = append(arr.items, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// FromValue 将任意 Go 值转换为树
//
// map 的键按字典序排列；*Node 与 json.RawMessage 原样并入。
// 若 map 或 slice 在自身路径上再次出现，返回 ErrCyclic。
func FromValue(v any) (*Node, error) {
	return fromValue(reflect.ValueOf(v), map[uintptr]bool{})
}

func fromValue(rv reflect.Value, onPath map[uintptr]bool) (*Node, error) {
	if !rv.IsValid() {
		return Null(), nil
	}
	if rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Null(), nil
		}
	}

	switch x := rv.Interface().(type) {
	case *Node:
		return x, nil
	case json.RawMessage:
		return Parse(x)
	case json.Number:
		return Number(x), nil
	case json.Marshaler:
		b, err := x.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return Parse(b)
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		return fromValue(rv.Elem(), onPath)
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(json.Number(fmt.Sprint(rv.Int()))), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(json.Number(fmt.Sprint(rv.Uint()))), nil
	case reflect.Float32, reflect.Float64:
		b, err := json.Marshal(rv.Float())
		if err != nil {
			return nil, err
		}
		return Number(json.Number(b)), nil
	case reflect.Map:
		if rv.IsNil() {
			return Null(), nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		ptr := rv.Pointer()
		if onPath[ptr] {
			return nil, ErrCyclic
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)

		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		obj := Object()
		for _, k := range keys {
			child, err := fromValue(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())), onPath)
			if err != nil {
				return nil, err
			}
			obj.Set(k, child)
		}
		return obj, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice {
			if rv.IsNil() {
				return Null(), nil
			}
			ptr := rv.Pointer()
			if ptr != 0 && rv.Len() > 0 {
				if onPath[ptr] {
					return nil, ErrCyclic
				}
				onPath[ptr] = true
				defer delete(onPath, ptr)
			}
		}
		arr := Array()
		for i := 0; i < rv.Len(); i++ {
			child, err := fromValue(rv.Index(i), onPath)
			if err != nil {
				return nil, err
			}
			arr.items = append(arr.items, child)
		}
		return arr, nil
	case reflect.Struct:
		b, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil, err
		}
		return Parse(b)
	}
	return nil, fmt.Errorf("unsupported value type %s", rv.Type())
}
