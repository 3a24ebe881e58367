// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/weisyn/nodegate/internal/config/api"
	cacheconfig "github.com/weisyn/nodegate/internal/config/cache"
	logconfig "github.com/weisyn/nodegate/internal/config/log"
	upstreamconfig "github.com/weisyn/nodegate/internal/config/upstream"
)

// Provider 配置提供者接口
type Provider interface {
	// GetAPI 获取API服务配置
	GetAPI() *apiconfig.APIOptions

	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetUpstream 获取上游节点连接配置
	GetUpstream() *upstreamconfig.UpstreamOptions

	// GetCache 获取解码调用缓存配置
	GetCache() *cacheconfig.CacheOptions
}
