package decorator

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// 装饰使用的字段名
const (
	FieldCallIndex  = "callIndex"
	FieldCallName   = "callName"
	FieldPalletName = "palletName"
)

// Resolver 将调用索引解析为调用元信息
type Resolver interface {
	FindMetaCall(callIndex []byte) (*chain.CallMeta, error)
}

// NodeError 单个节点的装饰失败
type NodeError struct {
	Path string // 节点在树中的位置，如 $.args.calls[1]
	Tag  string // 原始 callIndex 字符串
	Err  error
}

func (e NodeError) Error() string {
	return fmt.Sprintf("%s: callIndex %q: %v", e.Path, e.Tag, e.Err)
}

func (e NodeError) Unwrap() error { return e.Err }

// Decorate 为所有带字符串 callIndex 字段的对象节点补充 callName 与 palletName
//
// 单个节点解析失败不影响其余节点，失败信息逐个返回。
// 无论当前节点是否被装饰，都会继续递归其全部字段。
func Decorate(r Resolver, root *Node) []NodeError {
	var errs []NodeError
	walk(r, root, "$", &errs)
	return errs
}

func walk(r Resolver, n *Node, at string, errs *[]NodeError) {
	switch n.Kind() {
	case KindArray:
		for i, item := range n.Items() {
			walk(r, item, at+"["+strconv.Itoa(i)+"]", errs)
		}
	case KindObject:
		if tagNode, ok := n.Get(FieldCallIndex); ok {
			if tag, ok := tagNode.AsString(); ok {
				if err := annotate(r, n, tag); err != nil {
					*errs = append(*errs, NodeError{Path: at, Tag: tag, Err: err})
				}
			}
		}
		for _, f := range n.Fields() {
			walk(r, f.Value, at+"."+f.Key, errs)
		}
	}
}

func annotate(r Resolver, n *Node, tag string) error {
	idx, err := DecodeCallIndex(tag)
	if err != nil {
		return err
	}
	meta, err := r.FindMetaCall(idx)
	if err != nil {
		return err
	}
	if meta == nil {
		return chain.ErrUnknownCallIndex
	}
	n.Set(FieldCallName, String(meta.Name))
	n.Set(FieldPalletName, String(meta.Section))
	return nil
}

// DecodeCallIndex 解析 0x 前缀的两字节调用索引
func DecodeCallIndex(tag string) ([]byte, error) {
	b, err := hexutil.Decode(tag)
	if err != nil {
		return nil, fmt.Errorf("decode call index: %w", err)
	}
	if len(b) != 2 {
		return nil, fmt.Errorf("decode call index: want 2 bytes, got %d", len(b))
	}
	return b, nil
}
