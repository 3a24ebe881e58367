// Package connection 维护按网络端点缓存的节点句柄
//
// 每个端点至多一个句柄：首次访问时创建并完成发现握手，之后直接复用，
// 不做健康检查、不过期、不刷新。断线重连由句柄自身负责。
// 创建失败不缓存，下一次访问会重新创建。
package connection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weisyn/nodegate/internal/core/infrastructure/metrics"
	"github.com/weisyn/nodegate/pkg/interfaces/chain"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/log"
	metricsiface "github.com/weisyn/nodegate/pkg/interfaces/infrastructure/metrics"
)

// 连接事件主题
const (
	TopicCreated event.EventType = "connection.created"
	TopicFailed  event.EventType = "connection.failed"
	TopicReused  event.EventType = "connection.reused"
)

var (
	// ErrEmptyEndpoint 端点为空
	ErrEmptyEndpoint = errors.New("empty network endpoint")

	// ErrClosed 注册表已关闭
	ErrClosed = errors.New("connection registry closed")
)

// Event 连接事件载荷
type Event struct {
	Endpoint       string
	RuntimeVersion string
	Duration       time.Duration
	Err            error
}

// Options 注册表参数
type Options struct {
	// ConnectTimeout 单次句柄创建（拨号+握手）的总时长上限，0 表示不限制
	ConnectTimeout time.Duration

	// SingleFlight 同一端点的并发首次访问共享一次创建；
	// 关闭后并发首次访问各自创建，最后写入者生效
	SingleFlight bool
}

// Registry 进程级句柄注册表
type Registry struct {
	connector chain.Connector
	opts      Options
	logger    log.Logger
	bus       event.EventBus
	metrics   *metrics.Collectors

	mu        sync.RWMutex
	handles   map[string]chain.Handle
	displaced []chain.Handle // 非单飞模式下被覆盖的句柄，关闭时统一释放
	closed    bool

	group    singleflight.Group
	inflight atomic.Int64
}

var _ metricsiface.MemoryReporter = (*Registry)(nil)

// New 创建注册表，logger、bus、collectors 均可为 nil
func New(connector chain.Connector, opts Options, logger log.Logger, bus event.EventBus, collectors *metrics.Collectors) *Registry {
	return &Registry{
		connector: connector,
		opts:      opts,
		logger:    logger,
		bus:       bus,
		metrics:   collectors,
		handles:   make(map[string]chain.Handle),
	}
}

// Acquire 返回端点对应的句柄，不存在时创建
//
// 创建在脱离调用方取消信号的上下文中进行，调用方提前返回不会中断共享的创建过程。
func (r *Registry) Acquire(ctx context.Context, endpoint string) (chain.Handle, error) {
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}

	h, err := r.lookup(endpoint)
	if err != nil {
		return nil, err
	}
	if h != nil {
		r.observeLookup("hit")
		r.publish(TopicReused, Event{Endpoint: endpoint, RuntimeVersion: h.RuntimeVersion()})
		return h, nil
	}
	r.observeLookup("miss")

	if !r.opts.SingleFlight {
		return r.create(ctx, endpoint)
	}

	ch := r.group.DoChan(endpoint, func() (interface{}, error) {
		return r.create(ctx, endpoint)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(chain.Handle), nil
	}
}

func (r *Registry) lookup(endpoint string) (chain.Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.handles[endpoint], nil
}

func (r *Registry) create(ctx context.Context, endpoint string) (chain.Handle, error) {
	// 单飞模式下前一轮创建可能刚刚完成
	if r.opts.SingleFlight {
		if h, err := r.lookup(endpoint); err != nil || h != nil {
			return h, err
		}
	}

	r.inflight.Add(1)
	defer r.inflight.Add(-1)

	cctx := context.WithoutCancel(ctx)
	if r.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, r.opts.ConnectTimeout)
		defer cancel()
	}

	start := time.Now()
	h, err := r.connector.Connect(cctx, endpoint)
	elapsed := time.Since(start)
	if err != nil {
		r.observeCreation("failure")
		r.publish(TopicFailed, Event{Endpoint: endpoint, Duration: elapsed, Err: err})
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = h.Close()
		return nil, ErrClosed
	}
	if prev, ok := r.handles[endpoint]; ok && prev != h {
		r.displaced = append(r.displaced, prev)
		if r.logger != nil {
			r.logger.Warnf("端点句柄被并发创建覆盖: endpoint=%s", endpoint)
		}
	}
	r.handles[endpoint] = h
	r.mu.Unlock()

	r.observeCreation("success")
	r.publish(TopicCreated, Event{Endpoint: endpoint, RuntimeVersion: h.RuntimeVersion(), Duration: elapsed})
	return h, nil
}

// Endpoints 已缓存的端点，按字典序
func (r *Registry) Endpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handles))
	for ep := range r.handles {
		out = append(out, ep)
	}
	sort.Strings(out)
	return out
}

// Len 已缓存的句柄数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close 关闭全部句柄，之后 Acquire 返回 ErrClosed
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handles := make([]chain.Handle, 0, len(r.handles)+len(r.displaced))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	handles = append(handles, r.displaced...)
	r.handles = make(map[string]chain.Handle)
	r.displaced = nil
	r.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", h.Endpoint(), err))
		}
	}
	return errors.Join(errs...)
}

// ModuleName 实现 MemoryReporter
func (r *Registry) ModuleName() string {
	return "connection"
}

// CollectMemoryStats 实现 MemoryReporter
func (r *Registry) CollectMemoryStats() metricsiface.ModuleMemoryStats {
	return metricsiface.ModuleMemoryStats{
		Module:      r.ModuleName(),
		Objects:     int64(r.Len()),
		QueueLength: r.inflight.Load(),
	}
}

func (r *Registry) publish(topic event.EventType, e Event) {
	if r.bus != nil {
		r.bus.Publish(topic, e)
	}
}

func (r *Registry) observeLookup(result string) {
	if r.metrics != nil {
		r.metrics.ConnectionLookups.WithLabelValues(result).Inc()
	}
}

func (r *Registry) observeCreation(outcome string) {
	if r.metrics != nil {
		r.metrics.ConnectionCreations.WithLabelValues(outcome).Inc()
	}
}
