package callcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/weisyn/nodegate/pkg/interfaces/infrastructure/metrics"
)

// MemoryCache 基于 BigCache 的进程内缓存
type MemoryCache struct {
	cache *bigcache.BigCache

	mu     sync.Mutex
	closed bool
}

var (
	_ Cache                  = (*MemoryCache)(nil)
	_ metrics.MemoryReporter = (*MemoryCache)(nil)
)

// NewMemoryCache 创建内存缓存
//
// lifeWindow 为条目存活时间，maxEntrySize 为单条目初始分配大小（字节）。
func NewMemoryCache(lifeWindow time.Duration, maxEntrySize int) (*MemoryCache, error) {
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.MaxEntrySize = maxEntrySize
	cfg.MaxEntriesInWindow = 1024
	cfg.HardMaxCacheSize = 256 // MB
	cfg.Shards = 64
	cfg.CleanWindow = lifeWindow / 2
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}
	return &MemoryCache{cache: cache}, nil
}

// Get 读取缓存
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, err := m.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// Put 写入缓存
func (m *MemoryCache) Put(_ context.Context, key string, value []byte) error {
	return m.cache.Set(key, value)
}

// Close 关闭缓存，重复关闭无副作用
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.cache.Close()
}

// ModuleName 实现 MemoryReporter
func (m *MemoryCache) ModuleName() string {
	return "callcache"
}

// CollectMemoryStats 实现 MemoryReporter
func (m *MemoryCache) CollectMemoryStats() metrics.ModuleMemoryStats {
	return metrics.ModuleMemoryStats{
		Module:      m.ModuleName(),
		Objects:     int64(m.cache.Len()),
		ApproxBytes: int64(m.cache.Capacity()),
		CacheItems:  int64(m.cache.Len()),
	}
}
