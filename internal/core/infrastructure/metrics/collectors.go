// Package metrics 提供 Prometheus 指标收集
//
// 所有指标注册到注入的 Registerer，而非全局默认注册表，
// 便于测试中创建多个实例。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace 指标命名空间
const Namespace = "nodegate"

// Collectors 业务指标集合
type Collectors struct {
	// 连接缓存查找，result: hit | miss
	ConnectionLookups *prometheus.CounterVec
	// 句柄创建，outcome: success | failure
	ConnectionCreations *prometheus.CounterVec
	// 方法调用，outcome: ok | invalid | upstream
	Invocations *prometheus.CounterVec
	// 方法调用耗时
	InvocationDuration *prometheus.HistogramVec
	// 预映像装饰结果
	Decorations *prometheus.CounterVec
	// 解码调用缓存查找，result: hit | miss | error
	CallCacheLookups *prometheus.CounterVec
}

// NewCollectors 创建并注册业务指标
func NewCollectors(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)

	return &Collectors{
		ConnectionLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "connection",
				Name:      "lookups_total",
				Help:      "Connection cache lookups by result",
			},
			[]string{"result"},
		),
		ConnectionCreations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "connection",
				Name:      "creations_total",
				Help:      "Node handle creations by outcome",
			},
			[]string{"outcome"},
		),
		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "invoker",
				Name:      "invocations_total",
				Help:      "Dynamic method invocations by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		InvocationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "invoker",
				Name:      "invocation_duration_seconds",
				Help:      "Dynamic method invocation duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"category"},
		),
		Decorations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "invoker",
				Name:      "decorations_total",
				Help:      "Preimage call decoration outcomes",
			},
			[]string{"status"},
		),
		CallCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "callcache",
				Name:      "lookups_total",
				Help:      "Decoded call cache lookups by result",
			},
			[]string{"result"},
		),
	}
}
