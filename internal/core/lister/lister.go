// Package lister 枚举节点句柄上可调用的方法
package lister

import (
	"context"
	"fmt"

	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// Acquirer 按端点获取句柄
type Acquirer interface {
	Acquire(ctx context.Context, endpoint string) (chain.Handle, error)
}

// Lister 方法列举器
type Lister struct {
	acquirer Acquirer
}

// New 创建方法列举器
func New(acquirer Acquirer) *Lister {
	return &Lister{acquirer: acquirer}
}

// List 返回 命名空间 -> 方法名列表
//
// category 为空时列举交易构造类别（tx）。始终基于当前链状态，不支持历史区块。
// 方法名保持注册顺序并去重。
func (l *Lister) List(ctx context.Context, network string, category chain.Category) (map[string][]string, error) {
	if category == "" {
		category = chain.CategoryTx
	}
	if _, ok := chain.ParseCategory(string(category)); !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	h, err := l.acquirer.Acquire(ctx, network)
	if err != nil {
		return nil, err
	}
	return Methods(h.Capabilities(), category), nil
}

// Methods 从能力集合中收集某一类别的方法
func Methods(caps chain.CapabilitySet, category chain.Category) map[string][]string {
	out := make(map[string][]string)
	for _, ns := range caps.Namespaces(category) {
		seen := make(map[string]struct{})
		methods := make([]string, 0)
		for _, m := range caps.Methods(category, ns) {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			methods = append(methods, m)
		}
		out[ns] = methods
	}
	return out
}
