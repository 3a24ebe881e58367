package cache

import "time"

const (
	// defaultBackend 默认使用进程内缓存
	defaultBackend = BackendMemory

	// defaultLifeWindow 解码结果只依赖载荷与运行时版本，可以长时间保留
	defaultLifeWindow = time.Hour

	// defaultMaxEntrySize 单条目初始分配，批量调用的装饰结果通常在数 KB 以内
	defaultMaxEntrySize = 4096

	defaultRedisAddr   = "127.0.0.1:6379"
	defaultRedisPrefix = "nodegate:call:"
	defaultRedisTTL    = 24 * time.Hour
)
