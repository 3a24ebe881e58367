// Package upstream 上游节点连接配置
package upstream

import (
	"time"

	"github.com/weisyn/nodegate/pkg/types"
)

// UpstreamOptions 上游节点连接选项
type UpstreamOptions struct {
	ConnectTimeout   time.Duration `json:"connect_timeout"`   // 句柄创建总超时（拨号+发现握手）
	HandshakeTimeout time.Duration `json:"handshake_timeout"` // WebSocket 握手超时
	CallTimeout      time.Duration `json:"call_timeout"`      // 单次调用超时，0 表示不限制
	SingleFlight     bool          `json:"single_flight"`     // 同一端点的并发创建合并为一次
	ReadLimit        int64         `json:"read_limit"`        // 单条消息最大字节数
	LoadMetadata     bool          `json:"load_metadata"`     // 握手时拉取元数据并挂载运行时
}

// Config 上游配置实现
type Config struct {
	options *UpstreamOptions
}

// New 创建上游配置
func New(userConfig *types.UserUpstreamConfig) *Config {
	options := &UpstreamOptions{
		ConnectTimeout:   defaultConnectTimeout,
		HandshakeTimeout: defaultHandshakeTimeout,
		CallTimeout:      defaultCallTimeout,
		SingleFlight:     defaultSingleFlight,
		ReadLimit:        defaultReadLimit,
		LoadMetadata:     defaultLoadMetadata,
	}

	if userConfig != nil {
		if d, ok := parseDuration(userConfig.ConnectTimeout); ok && d > 0 {
			options.ConnectTimeout = d
		}
		if d, ok := parseDuration(userConfig.HandshakeTimeout); ok && d > 0 {
			options.HandshakeTimeout = d
		}
		// 调用超时允许显式设为 0
		if d, ok := parseDuration(userConfig.CallTimeout); ok && d >= 0 {
			options.CallTimeout = d
		}
		if userConfig.SingleFlight != nil {
			options.SingleFlight = *userConfig.SingleFlight
		}
		if userConfig.LoadMetadata != nil {
			options.LoadMetadata = *userConfig.LoadMetadata
		}
		if userConfig.ReadLimit != nil && *userConfig.ReadLimit > 0 {
			options.ReadLimit = *userConfig.ReadLimit
		}
	}

	return &Config{options: options}
}

func parseDuration(s *string) (time.Duration, bool) {
	if s == nil {
		return 0, false
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, false
	}
	return d, true
}

// GetOptions 获取上游配置选项
func (c *Config) GetOptions() *UpstreamOptions {
	return c.options
}
