// Package invoker 按 {类别, 命名空间, 方法} 在节点句柄上调用能力
//
// 对 query.preimage.preimageFor 的有值结果，额外将载荷解码为 Call 并补充
// 调用名与 pallet 名。解码阶段的失败只体现在 DecorationReport 中，
// 不会使请求失败。
package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/weisyn/nodegate/internal/core/callcache"
	"github.com/weisyn/nodegate/internal/core/decorator"
	"github.com/weisyn/nodegate/internal/core/infrastructure/metrics"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
)

// 预映像后处理的触发路径
var preimagePath = chain.Path{Category: chain.CategoryQuery, Namespace: "preimage", Method: "preimageFor"}

// callTypeName 预映像载荷的解码类型
const callTypeName = "Call"

// Request 调用描述
type Request struct {
	Type      string            // 能力类别
	Namespace string            // 命名空间
	Method    string            // 方法
	Params    []json.RawMessage // 按位置展开的参数
	BlockHash string            // 可选的历史区块
}

// Path 请求对应的能力路径，类别不合法时 ok 为 false
func (r Request) Path() (chain.Path, bool) {
	cat, ok := chain.ParseCategory(r.Type)
	if !ok {
		return chain.Path{}, false
	}
	p := chain.Path{Category: cat, Namespace: r.Namespace, Method: r.Method}
	return p, p.Valid()
}

// Status 预映像装饰结果
type Status string

const (
	StatusDecorated       Status = "decorated"        // 解码并装饰成功
	StatusCached          Status = "cached"           // 命中解码调用缓存
	StatusDecodeFailed    Status = "decode_failed"    // CreateType 失败，返回原始 Option
	StatusNotSerializable Status = "not_serializable" // 解码值不支持结构化序列化，返回原始 Option
	StatusSerializeFailed Status = "serialize_failed" // 序列化失败，返回解码值
)

// DecorationReport 预映像后处理报告
type DecorationReport struct {
	Status     Status
	Err        error
	NodeErrors []decorator.NodeError
}

// Result 调用结果
type Result struct {
	// Value 可直接 JSON 编码的结果
	Value any

	// Raw 能力返回的原始值
	Raw chain.Codec

	// Decoration 仅在触发预映像后处理时非空
	Decoration *DecorationReport
}

// Options 调用器参数
type Options struct {
	// CallTimeout 单次调用时长上限，0 表示不限制
	CallTimeout time.Duration
}

// Invoker 动态方法调用器
type Invoker struct {
	opts    Options
	cache   callcache.Cache
	metrics *metrics.Collectors
}

// New 创建调用器，cache 与 collectors 可为 nil
func New(opts Options, cache callcache.Cache, collectors *metrics.Collectors) *Invoker {
	if cache == nil {
		cache = callcache.Noop{}
	}
	return &Invoker{
		opts:    opts,
		cache:   cache,
		metrics: collectors,
	}
}

// Invoke 在句柄上执行请求
//
// 错误类型：
//   - ErrInvalidRequest：能力路径不存在，未发起调用
//   - *UpstreamError：历史视图或能力调用失败
func (iv *Invoker) Invoke(ctx context.Context, h chain.Handle, req Request) (*Result, error) {
	start := time.Now()

	path, ok := req.Path()
	if !ok {
		iv.observe(req.Type, "invalid", start)
		return nil, ErrInvalidRequest
	}

	if iv.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.opts.CallTimeout)
		defer cancel()
	}

	if req.BlockHash != "" {
		scoped, err := h.At(ctx, req.BlockHash)
		if err != nil {
			iv.observe(req.Type, "upstream", start)
			return nil, &UpstreamError{Op: "at " + req.BlockHash, Err: err}
		}
		h = scoped
	}

	fn, ok := h.Capabilities().Lookup(path)
	if !ok {
		iv.observe(req.Type, "invalid", start)
		return nil, ErrInvalidRequest
	}

	raw, err := fn(ctx, req.Params)
	if err != nil {
		iv.observe(req.Type, "upstream", start)
		return nil, &UpstreamError{Op: "invoke " + path.String(), Err: err}
	}
	iv.observe(req.Type, "ok", start)

	res := &Result{Raw: raw, Value: Render(raw)}
	if path == preimagePath {
		if opt, ok := raw.(chain.Option); ok && opt.IsSome() {
			res.Value, res.Decoration = iv.decoratePreimage(ctx, h, opt)
			if iv.metrics != nil {
				iv.metrics.Decorations.WithLabelValues(string(res.Decoration.Status)).Inc()
			}
		}
	}
	return res, nil
}

// decoratePreimage 解码预映像载荷并装饰调用索引
func (iv *Invoker) decoratePreimage(ctx context.Context, h chain.Handle, opt chain.Option) (any, *DecorationReport) {
	hex := opt.Unwrap().ToHex()

	payload, err := hexutil.Decode(hex)
	if err != nil {
		payload = []byte(hex)
	}
	key := callcache.Key(h.Endpoint(), h.RuntimeVersion(), payload)

	if cached, ok := iv.lookupCache(ctx, key); ok {
		return cached, &DecorationReport{Status: StatusCached}
	}

	decoded, err := h.CreateType(callTypeName, hex)
	if err != nil {
		return Render(opt), &DecorationReport{Status: StatusDecodeFailed, Err: err}
	}

	ser, ok := decoded.(chain.Serializable)
	if !ok {
		return Render(opt), &DecorationReport{Status: StatusNotSerializable}
	}

	v, err := ser.ToJSON()
	if err != nil {
		return decoded.ToHex(), &DecorationReport{Status: StatusSerializeFailed, Err: err}
	}
	tree, err := decorator.FromValue(v)
	if err != nil {
		return decoded.ToHex(), &DecorationReport{Status: StatusSerializeFailed, Err: err}
	}

	nodeErrs := decorator.Decorate(h, tree)
	// 部分节点未能解析时不缓存，元数据更新后可重新解析
	if len(nodeErrs) == 0 {
		if data, err := json.Marshal(tree); err == nil {
			_ = iv.cache.Put(ctx, key, data)
		}
	}
	return tree, &DecorationReport{Status: StatusDecorated, NodeErrors: nodeErrs}
}

func (iv *Invoker) lookupCache(ctx context.Context, key string) (json.RawMessage, bool) {
	v, ok, err := iv.cache.Get(ctx, key)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}
	if iv.metrics != nil {
		iv.metrics.CallCacheLookups.WithLabelValues(result).Inc()
	}
	if err != nil || !ok || !json.Valid(v) {
		return nil, false
	}
	return json.RawMessage(v), true
}

func (iv *Invoker) observe(category, outcome string, start time.Time) {
	if iv.metrics == nil {
		return
	}
	if _, ok := chain.ParseCategory(category); !ok {
		category = "unknown"
	}
	iv.metrics.Invocations.WithLabelValues(category, outcome).Inc()
	iv.metrics.InvocationDuration.WithLabelValues(category).Observe(time.Since(start).Seconds())
}

// Render 将返回值转换为可 JSON 编码的形式
//
// 可序列化的值使用 ToJSON，失败时回退到 ToHex；其余使用 ToHex。
func Render(c chain.Codec) any {
	if c == nil {
		return nil
	}
	if s, ok := c.(chain.Serializable); ok {
		if v, err := s.ToJSON(); err == nil {
			return v
		}
	}
	return c.ToHex()
}

// String 报告的单行描述，用于日志
func (r *DecorationReport) String() string {
	if r == nil {
		return "none"
	}
	s := string(r.Status)
	if r.Err != nil {
		s += fmt.Sprintf(" err=%v", r.Err)
	}
	if len(r.NodeErrors) > 0 {
		s += fmt.Sprintf(" node_errors=%d", len(r.NodeErrors))
	}
	return s
}
