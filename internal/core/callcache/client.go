package callcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	cacheconfig "github.com/weisyn/nodegate/internal/config/cache"
)

// errKeyNotFound 键不存在
var errKeyNotFound = errors.New("key not found")

// redisClient Redis 客户端接口（用于依赖注入和测试）
//
// 包内私有，生产环境使用 go-redis，测试使用 mock。
type redisClient interface {
	// Set 设置键值对
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	// Get 获取键对应的值，不存在时返回 errKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Ping 测试连接
	Ping(ctx context.Context) error
	// Close 关闭连接
	Close() error
}

// goRedisClient go-redis 客户端实现
//
// go-redis 客户端本身并发安全，可在多个 goroutine 中使用。
type goRedisClient struct {
	client *redis.Client
}

var _ redisClient = (*goRedisClient)(nil)

// newGoRedisClient 创建 go-redis 客户端并测试连接
func newGoRedisClient(ctx context.Context, opts cacheconfig.RedisOptions) (redisClient, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &goRedisClient{client: client}, nil
}

// Set 设置键值对
func (c *goRedisClient) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get 获取键对应的值
func (c *goRedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errKeyNotFound
		}
		return nil, err
	}
	return b, nil
}

// Ping 测试连接
func (c *goRedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭连接
func (c *goRedisClient) Close() error {
	return c.client.Close()
}
