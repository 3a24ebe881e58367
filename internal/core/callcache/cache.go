// Package callcache 缓存已装饰的预映像调用解码结果
//
// 同一运行时版本下，相同载荷的解码与装饰结果是确定的，
// 因此以 网络端点 | 运行时版本 | 载荷摘要 为键缓存装饰后的 JSON。
package callcache

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Cache 解码调用缓存
type Cache interface {
	// Get 读取缓存，未命中时 ok 为 false
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put 写入缓存
	Put(ctx context.Context, key string, value []byte) error

	// Close 释放资源
	Close() error
}

// Key 生成缓存键
func Key(network, runtimeVersion string, payload []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(network))
	h.Write([]byte{'|'})
	h.Write([]byte(runtimeVersion))
	h.Write([]byte{'|'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Noop 不缓存任何内容
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Put(context.Context, string, []byte) error { return nil }

func (Noop) Close() error { return nil }
