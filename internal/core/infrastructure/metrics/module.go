package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	metricsiface "github.com/weisyn/nodegate/pkg/interfaces/infrastructure/metrics"
)

// ModuleOutput 指标模块输出
type ModuleOutput struct {
	fx.Out

	Registry   *prometheus.Registry
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Collectors *Collectors
	Memory     *MemoryCollector
}

// ReporterInput 通过 fx 分组收集的内存上报器
type ReporterInput struct {
	fx.In

	Memory    *MemoryCollector
	Reporters []metricsiface.MemoryReporter `group:"memory_reporters"`
}

// Module 返回 metrics 模块
//
// 需要上报内存状态的模块以 `group:"memory_reporters"` 提供 MemoryReporter。
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideMetrics),
		fx.Invoke(RegisterReporters),
	)
}

// ProvideMetrics 创建独立的 Prometheus 注册表与业务指标
func ProvideMetrics() ModuleOutput {
	reg := NewRegistry()
	memory := NewMemoryCollector()
	reg.MustRegister(memory)

	return ModuleOutput{
		Registry:   reg,
		Registerer: reg,
		Gatherer:   reg,
		Collectors: NewCollectors(reg),
		Memory:     memory,
	}
}

// NewRegistry 创建带 Go 运行时与进程指标的注册表
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RegisterReporters 注册所有内存上报器
func RegisterReporters(in ReporterInput) {
	for _, r := range in.Reporters {
		in.Memory.Register(r)
	}
}
