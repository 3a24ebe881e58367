package config

import (
	"github.com/weisyn/nodegate/internal/config/api"
	"github.com/weisyn/nodegate/internal/config/cache"
	"github.com/weisyn/nodegate/internal/config/log"
	"github.com/weisyn/nodegate/internal/config/upstream"
	"github.com/weisyn/nodegate/pkg/interfaces/config"
	"github.com/weisyn/nodegate/pkg/types"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// 编译时校验
var _ config.Provider = (*Provider)(nil)

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	return &Provider{
		appConfig: appConfig,
	}
}

// GetAPI 获取API服务配置
func (p *Provider) GetAPI() *api.APIOptions {
	// api.New会处理默认值应用和用户配置覆盖
	return api.New(p.appConfig.API).GetOptions()
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	return log.New(p.appConfig.Log).GetOptions()
}

// GetUpstream 获取上游节点连接配置
func (p *Provider) GetUpstream() *upstream.UpstreamOptions {
	return upstream.New(p.appConfig.Upstream).GetOptions()
}

// GetCache 获取解码调用缓存配置
func (p *Provider) GetCache() *cache.CacheOptions {
	return cache.New(p.appConfig.Cache).GetOptions()
}
