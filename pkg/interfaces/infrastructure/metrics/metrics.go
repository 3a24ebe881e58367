// Package metrics 定义模块内存上报接口
//
// 持有缓存或连接的模块实现 MemoryReporter，由指标基础设施统一采集，
// 以 Prometheus 指标形式暴露。
package metrics

// ModuleMemoryStats 模块自报的逻辑内存状态
//
// 不追求精确，关键是反映趋势和相对大小。
type ModuleMemoryStats struct {
	Module      string `json:"module"`       // 模块名称：connection / callcache ...
	Objects     int64  `json:"objects"`      // 主要对象数：连接数 / 条目数
	ApproxBytes int64  `json:"approx_bytes"` // 模块估算字节数，无法估算时为 0
	CacheItems  int64  `json:"cache_items"`  // 缓存条目
	QueueLength int64  `json:"queue_length"` // 等待中的请求数
}

// MemoryReporter 内存上报接口
type MemoryReporter interface {
	// ModuleName 返回模块名称
	ModuleName() string

	// CollectMemoryStats 收集当前模块的内存统计信息
	CollectMemoryStats() ModuleMemoryStats
}
