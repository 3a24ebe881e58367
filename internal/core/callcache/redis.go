package callcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	cacheconfig "github.com/weisyn/nodegate/internal/config/cache"
)

// RedisCache 基于 Redis 的共享缓存，多个代理实例可共用
//
// Key 格式：{prefix}{key}，TTL 通过 Redis 过期实现。
type RedisCache struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache 连接 Redis 并创建缓存
func NewRedisCache(ctx context.Context, opts cacheconfig.RedisOptions) (*RedisCache, error) {
	client, err := newGoRedisClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return newRedisCacheWithClient(client, opts.Prefix, opts.TTL), nil
}

// newRedisCacheWithClient 使用指定客户端创建（测试用）
func newRedisCacheWithClient(client redisClient, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get 读取缓存
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key)
	if err != nil {
		if errors.Is(err, errKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

// Put 写入缓存
func (r *RedisCache) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close 关闭连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}
