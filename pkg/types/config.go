package types

// AppConfig 应用配置
//
// 🔧 零值陷阱处理：
// 所有用户字段使用指针类型，以区分"未设置"与"设置为零值"：
//   - nil: 未在配置文件中出现，使用系统默认值
//   - &value: 用户明确设置，即使是 0、false、"" 也会被采用
type AppConfig struct {
	// API 配置 - 对应配置文件中的 api 字段
	API *UserAPIConfig `json:"api,omitempty"`

	// 日志配置
	Log *UserLogConfig `json:"log,omitempty"`

	// 上游节点连接配置
	Upstream *UserUpstreamConfig `json:"upstream,omitempty"`

	// 解码调用缓存配置
	Cache *UserCacheConfig `json:"cache,omitempty"`
}

// UserAPIConfig 用户API配置
// 只包含JSON配置文件中实际出现的字段
type UserAPIConfig struct {
	HTTPEnabled    *bool   `json:"http_enabled,omitempty"`     // 是否启用HTTP服务（默认true）
	HTTPHost       *string `json:"http_host,omitempty"`        // HTTP监听地址
	HTTPPort       *int    `json:"http_port,omitempty"`        // HTTP监听端口
	ReadTimeout    *string `json:"read_timeout,omitempty"`     // 读取超时，如 "15s"
	WriteTimeout   *string `json:"write_timeout,omitempty"`    // 写入超时
	MaxRequestSize *int    `json:"max_request_size,omitempty"` // 最大请求体字节数
}

// UserLogConfig 用户日志配置
// 只包含JSON配置文件中实际出现的字段
type UserLogConfig struct {
	Level     *string `json:"level,omitempty"`      // 日志级别：debug, info, warn, error, fatal
	FilePath  *string `json:"file_path,omitempty"`  // 日志文件路径
	ToConsole *bool   `json:"to_console,omitempty"` // 是否输出到控制台
}

// UserUpstreamConfig 用户上游节点配置
type UserUpstreamConfig struct {
	ConnectTimeout   *string `json:"connect_timeout,omitempty"`   // 句柄创建（拨号+握手）总超时
	HandshakeTimeout *string `json:"handshake_timeout,omitempty"` // WebSocket 握手超时
	CallTimeout      *string `json:"call_timeout,omitempty"`      // 单次调用超时，"0s" 表示不限制
	SingleFlight     *bool   `json:"single_flight,omitempty"`     // 同一端点并发创建是否合并
	ReadLimit        *int64  `json:"read_limit,omitempty"`        // 单条消息最大字节数
	LoadMetadata     *bool   `json:"load_metadata,omitempty"`     // 是否拉取元数据挂载运行时
}

// UserCacheConfig 用户解码调用缓存配置
type UserCacheConfig struct {
	Backend       *string `json:"backend,omitempty"`        // memory | redis | none
	LifeWindow    *string `json:"life_window,omitempty"`    // 内存缓存条目存活时间
	MaxEntrySize  *int    `json:"max_entry_size,omitempty"` // 内存缓存单条目初始大小（字节）
	RedisAddr     *string `json:"redis_addr,omitempty"`
	RedisPassword *string `json:"redis_password,omitempty"`
	RedisDB       *int    `json:"redis_db,omitempty"`
	RedisPrefix   *string `json:"redis_prefix,omitempty"`
	RedisTTL      *string `json:"redis_ttl,omitempty"`
}

// BoolPtr 创建bool指针，用于明确表示用户设置了该值
func BoolPtr(v bool) *bool {
	return &v
}

// IntPtr 创建int指针，用于明确表示用户设置了该值
func IntPtr(v int) *int {
	return &v
}

// Int64Ptr 创建int64指针
func Int64Ptr(v int64) *int64 {
	return &v
}

// StringPtr 创建string指针，用于明确表示用户设置了该值
func StringPtr(v string) *string {
	return &v
}
