package upstream

import "time"

const (
	// defaultConnectTimeout 句柄创建总超时
	// 首次握手需要拉取运行时版本（以及可选的元数据），公共节点上通常在数秒内完成
	defaultConnectTimeout = 30 * time.Second

	// defaultHandshakeTimeout WebSocket 握手超时
	defaultHandshakeTimeout = 10 * time.Second

	// defaultCallTimeout 默认不限制单次调用时间
	defaultCallTimeout = 0

	// defaultSingleFlight 默认合并同一端点的并发创建
	defaultSingleFlight = true

	// defaultLoadMetadata 默认挂载运行时，关闭后仅提供 rpc 类别
	defaultLoadMetadata = true

	// defaultReadLimit 单条消息上限 64MB，元数据响应可达数 MB
	defaultReadLimit = 64 << 20
)
