package api

import "time"

// API服务默认配置值
const (
	// defaultHTTPEnabled 默认启用HTTP API
	defaultHTTPEnabled = true

	// defaultHTTPHost 默认只监听本机
	// 代理本身不做鉴权，对外暴露需显式配置
	defaultHTTPHost = "127.0.0.1"

	// defaultHTTPPort 默认端口3000
	defaultHTTPPort = 3000

	// defaultHTTPReadTimeout HTTP读取超时设为15秒
	defaultHTTPReadTimeout = 15 * time.Second

	// defaultHTTPWriteTimeout HTTP写入超时
	// 历史区块查询与预映像解码可能较慢，写超时放宽到60秒
	defaultHTTPWriteTimeout = 60 * time.Second

	// defaultHTTPIdleTimeout 空闲连接超时
	defaultHTTPIdleTimeout = 60 * time.Second

	// defaultMaxRequestSize 最大请求大小设为4MB
	defaultMaxRequestSize = 4 * 1024 * 1024
)
