// Package capability 提供按路径注册的能力注册表
//
// 注册时完成全部校验（类别合法、路径非空、可调用、不重复），
// 查询侧只做查表，不再对调用目标做任何反射式判断。
package capability

import (
	"errors"
	"fmt"
	"sync"

	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

var (
	// ErrInvalidPath 路径不合法
	ErrInvalidPath = errors.New("invalid capability path")

	// ErrNilCapability 注册了空的可调用对象
	ErrNilCapability = errors.New("nil capability")

	// ErrDuplicate 路径已注册
	ErrDuplicate = errors.New("capability already registered")
)

type namespace struct {
	methods []string
	fns     map[string]chain.Capability
}

// Registry 能力注册表，注册顺序即枚举顺序
type Registry struct {
	mu         sync.RWMutex
	categories map[chain.Category]*categoryEntry
	size       int
}

type categoryEntry struct {
	order []string
	ns    map[string]*namespace
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{categories: make(map[chain.Category]*categoryEntry)}
}

// 编译时校验
var (
	_ chain.CapabilitySet = (*Registry)(nil)
	_ chain.Registrar     = (*Registry)(nil)
)

// Register 注册一个能力
func (r *Registry) Register(path chain.Path, fn chain.Capability) error {
	if !path.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path.String())
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilCapability, path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cat, ok := r.categories[path.Category]
	if !ok {
		cat = &categoryEntry{ns: make(map[string]*namespace)}
		r.categories[path.Category] = cat
	}
	ns, ok := cat.ns[path.Namespace]
	if !ok {
		ns = &namespace{fns: make(map[string]chain.Capability)}
		cat.ns[path.Namespace] = ns
		cat.order = append(cat.order, path.Namespace)
	}
	if _, exists := ns.fns[path.Method]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, path)
	}
	ns.fns[path.Method] = fn
	ns.methods = append(ns.methods, path.Method)
	r.size++
	return nil
}

// Lookup 按路径查找能力
func (r *Registry) Lookup(path chain.Path) (chain.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cat, ok := r.categories[path.Category]
	if !ok {
		return nil, false
	}
	ns, ok := cat.ns[path.Namespace]
	if !ok {
		return nil, false
	}
	fn, ok := ns.fns[path.Method]
	return fn, ok
}

// Namespaces 返回类别下的命名空间，按注册顺序
func (r *Registry) Namespaces(category chain.Category) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cat, ok := r.categories[category]
	if !ok {
		return []string{}
	}
	return append([]string(nil), cat.order...)
}

// Methods 返回命名空间下的方法名，按注册顺序
func (r *Registry) Methods(category chain.Category, ns string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cat, ok := r.categories[category]
	if !ok {
		return []string{}
	}
	entry, ok := cat.ns[ns]
	if !ok {
		return []string{}
	}
	return append([]string(nil), entry.methods...)
}

// Len 已注册能力总数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Without 返回去掉指定类别后的副本
func (r *Registry) Without(categories ...chain.Category) *Registry {
	skip := make(map[chain.Category]bool, len(categories))
	for _, c := range categories {
		skip[c] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry()
	for c, cat := range r.categories {
		if skip[c] {
			continue
		}
		for _, nsName := range cat.order {
			ns := cat.ns[nsName]
			for _, m := range ns.methods {
				_ = out.Register(chain.Path{Category: c, Namespace: nsName, Method: m}, ns.fns[m])
			}
		}
	}
	return out
}
