package configs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetDefaultConfig 测试默认配置可解析
func TestGetDefaultConfig(t *testing.T) {
	data := GetDefaultConfig()
	require.NotEmpty(t, data)

	var v map[string]any
	require.NoError(t, json.Unmarshal(data, &v))
	for _, key := range []string{"api", "log", "upstream", "cache"} {
		assert.Contains(t, v, key)
	}
}
