// Package configs 嵌入默认配置
package configs

import _ "embed"

//go:embed default.json
var defaultConfig []byte

// GetDefaultConfig 获取默认配置内容
func GetDefaultConfig() []byte {
	return defaultConfig
}
