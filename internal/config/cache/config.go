// Package cache 解码调用缓存配置
package cache

import (
	"time"

	"github.com/weisyn/nodegate/pkg/types"
)

// 缓存后端
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// CacheOptions 解码调用缓存选项
type CacheOptions struct {
	Backend string `json:"backend"` // memory | redis | none

	// 内存后端（bigcache）
	LifeWindow   time.Duration `json:"life_window"`
	MaxEntrySize int           `json:"max_entry_size"`

	// Redis 后端
	Redis RedisOptions `json:"redis"`
}

// RedisOptions Redis 连接选项
type RedisOptions struct {
	Addr     string        `json:"addr"`
	Password string        `json:"-"`
	DB       int           `json:"db"`
	Prefix   string        `json:"prefix"`
	TTL      time.Duration `json:"ttl"`
}

// Config 缓存配置实现
type Config struct {
	options *CacheOptions
}

// New 创建缓存配置，未知后端回退为 memory
func New(userConfig *types.UserCacheConfig) *Config {
	options := &CacheOptions{
		Backend:      defaultBackend,
		LifeWindow:   defaultLifeWindow,
		MaxEntrySize: defaultMaxEntrySize,
		Redis: RedisOptions{
			Addr:   defaultRedisAddr,
			Prefix: defaultRedisPrefix,
			TTL:    defaultRedisTTL,
		},
	}

	if userConfig != nil {
		if userConfig.Backend != nil {
			switch *userConfig.Backend {
			case BackendMemory, BackendRedis, BackendNone:
				options.Backend = *userConfig.Backend
			}
		}
		if d, ok := parseDuration(userConfig.LifeWindow); ok {
			options.LifeWindow = d
		}
		if userConfig.MaxEntrySize != nil && *userConfig.MaxEntrySize > 0 {
			options.MaxEntrySize = *userConfig.MaxEntrySize
		}
		if userConfig.RedisAddr != nil && *userConfig.RedisAddr != "" {
			options.Redis.Addr = *userConfig.RedisAddr
		}
		if userConfig.RedisPassword != nil {
			options.Redis.Password = *userConfig.RedisPassword
		}
		if userConfig.RedisDB != nil && *userConfig.RedisDB >= 0 {
			options.Redis.DB = *userConfig.RedisDB
		}
		if userConfig.RedisPrefix != nil {
			options.Redis.Prefix = *userConfig.RedisPrefix
		}
		if d, ok := parseDuration(userConfig.RedisTTL); ok {
			options.Redis.TTL = d
		}
	}

	return &Config{options: options}
}

func parseDuration(s *string) (time.Duration, bool) {
	if s == nil {
		return 0, false
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// GetOptions 获取缓存配置选项
func (c *Config) GetOptions() *CacheOptions {
	return c.options
}
