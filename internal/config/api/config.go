package api

import (
	"time"

	"github.com/weisyn/nodegate/pkg/types"
)

// APIOptions API服务配置选项
type APIOptions struct {
	// HTTP API配置
	HTTP HTTPConfig `json:"http"`
}

// HTTPConfig HTTP API配置
type HTTPConfig struct {
	// 基础配置
	Enabled bool   `json:"enabled"` // 是否启用HTTP服务
	Host    string `json:"host"`    // 监听地址
	Port    int    `json:"port"`    // 监听端口

	// 超时配置
	ReadTimeout  time.Duration `json:"read_timeout"`  // 读取超时时间
	WriteTimeout time.Duration `json:"write_timeout"` // 写入超时时间
	IdleTimeout  time.Duration `json:"idle_timeout"`  // 空闲连接超时

	// 安全
	MaxRequestSize int `json:"max_request_size"` // 最大请求大小(字节)
}

// Config API配置实现
type Config struct {
	options *APIOptions
}

// New 创建API配置实现
func New(userConfig *types.UserAPIConfig) *Config {
	// 1. 先创建完整的默认配置
	defaultOptions := createDefaultAPIOptions()

	// 2. 如果有用户配置，则转换并覆盖默认配置
	if userConfig != nil {
		convertAndMergeUserConfig(defaultOptions, userConfig)
	}

	return &Config{
		options: defaultOptions,
	}
}

// createDefaultAPIOptions 创建默认API配置
func createDefaultAPIOptions() *APIOptions {
	return &APIOptions{
		HTTP: HTTPConfig{
			Enabled:        defaultHTTPEnabled,
			Host:           defaultHTTPHost,
			Port:           defaultHTTPPort,
			ReadTimeout:    defaultHTTPReadTimeout,
			WriteTimeout:   defaultHTTPWriteTimeout,
			IdleTimeout:    defaultHTTPIdleTimeout,
			MaxRequestSize: defaultMaxRequestSize,
		},
	}
}

// convertAndMergeUserConfig 用户配置覆盖默认值，非法的时长保持默认
func convertAndMergeUserConfig(options *APIOptions, userConfig *types.UserAPIConfig) {
	if userConfig.HTTPEnabled != nil {
		options.HTTP.Enabled = *userConfig.HTTPEnabled
	}
	if userConfig.HTTPHost != nil && *userConfig.HTTPHost != "" {
		options.HTTP.Host = *userConfig.HTTPHost
	}
	if userConfig.HTTPPort != nil && *userConfig.HTTPPort > 0 {
		options.HTTP.Port = *userConfig.HTTPPort
	}
	if d, ok := parseDuration(userConfig.ReadTimeout); ok {
		options.HTTP.ReadTimeout = d
	}
	if d, ok := parseDuration(userConfig.WriteTimeout); ok {
		options.HTTP.WriteTimeout = d
	}
	if userConfig.MaxRequestSize != nil && *userConfig.MaxRequestSize > 0 {
		options.HTTP.MaxRequestSize = *userConfig.MaxRequestSize
	}
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

// GetOptions 获取API配置选项
func (c *Config) GetOptions() *APIOptions {
	return c.options
}
