package metrics

import (
	"sync"

	"github.com/pbnjay/memory"
	"github.com/prometheus/client_golang/prometheus"

	metricsiface "github.com/weisyn/nodegate/pkg/interfaces/infrastructure/metrics"
)

// MemoryCollector 将各模块的 MemoryReporter 暴露为 Prometheus 指标
type MemoryCollector struct {
	mu        sync.RWMutex
	reporters []metricsiface.MemoryReporter

	objects     *prometheus.Desc
	approxBytes *prometheus.Desc
	cacheItems  *prometheus.Desc
	queueLength *prometheus.Desc

	// 主机物理内存，用于与模块占用对照
	systemMemory *prometheus.Desc
}

// 编译时校验
var _ prometheus.Collector = (*MemoryCollector)(nil)

// NewMemoryCollector 创建内存指标采集器
func NewMemoryCollector() *MemoryCollector {
	labels := []string{"module"}
	return &MemoryCollector{
		objects:     prometheus.NewDesc(Namespace+"_module_objects", "Primary objects held by module", labels, nil),
		approxBytes: prometheus.NewDesc(Namespace+"_module_approx_bytes", "Approximate bytes held by module", labels, nil),
		cacheItems:  prometheus.NewDesc(Namespace+"_module_cache_items", "Cache entries held by module", labels, nil),
		queueLength: prometheus.NewDesc(Namespace+"_module_queue_length", "Pending work items in module", labels, nil),

		systemMemory: prometheus.NewDesc(Namespace+"_system_memory_bytes", "Total physical memory of the host", nil, nil),
	}
}

// Register 注册上报器，nil 忽略
func (c *MemoryCollector) Register(r metricsiface.MemoryReporter) {
	if r == nil {
		return
	}
	c.mu.Lock()
	c.reporters = append(c.reporters, r)
	c.mu.Unlock()
}

// Snapshot 按注册顺序收集各模块统计
func (c *MemoryCollector) Snapshot() []metricsiface.ModuleMemoryStats {
	c.mu.RLock()
	reporters := append([]metricsiface.MemoryReporter(nil), c.reporters...)
	c.mu.RUnlock()

	stats := make([]metricsiface.ModuleMemoryStats, 0, len(reporters))
	for _, r := range reporters {
		func() {
			// 单个模块 panic 不影响其他模块
			defer func() { _ = recover() }()
			s := r.CollectMemoryStats()
			if s.Module == "" {
				s.Module = r.ModuleName()
			}
			stats = append(stats, s)
		}()
	}
	return stats
}

// Describe 实现 prometheus.Collector
func (c *MemoryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.objects
	ch <- c.approxBytes
	ch <- c.cacheItems
	ch <- c.queueLength
	ch <- c.systemMemory
}

// Collect 实现 prometheus.Collector
func (c *MemoryCollector) Collect(ch chan<- prometheus.Metric) {
	// 无法探测时为 0
	ch <- prometheus.MustNewConstMetric(c.systemMemory, prometheus.GaugeValue, float64(memory.TotalMemory()))
	for _, s := range c.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.objects, prometheus.GaugeValue, float64(s.Objects), s.Module)
		ch <- prometheus.MustNewConstMetric(c.approxBytes, prometheus.GaugeValue, float64(s.ApproxBytes), s.Module)
		ch <- prometheus.MustNewConstMetric(c.cacheItems, prometheus.GaugeValue, float64(s.CacheItems), s.Module)
		ch <- prometheus.MustNewConstMetric(c.queueLength, prometheus.GaugeValue, float64(s.QueueLength), s.Module)
	}
}
