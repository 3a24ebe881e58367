package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	logconfig "github.com/weisyn/nodegate/internal/config/log"
	"github.com/weisyn/nodegate/pkg/types"
)

// TestFileOutput 测试写入日志文件
func TestFileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "nodegate.log")
	cfg := logconfig.New(&types.UserLogConfig{
		Level:     types.StringPtr(DebugLevel),
		FilePath:  types.StringPtr(logPath),
		ToConsole: types.BoolPtr(false),
	})

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Debug("调试日志")
	logger.Info("信息日志")
	logger.Warn("警告日志")
	logger.Error("错误日志")
	_ = logger.Sync()

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	for _, msg := range []string{"调试日志", "信息日志", "警告日志", "错误日志"} {
		assert.Contains(t, string(content), msg)
	}
	assert.True(t, strings.HasPrefix(string(content), "{"), "文件日志使用 JSON 编码")
}

// TestLevelFilter 测试日志级别过滤
func TestLevelFilter(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := New(logconfig.New(&types.UserLogConfig{
		Level:    types.StringPtr(WarnLevel),
		FilePath: types.StringPtr(logPath),
	}))
	require.NoError(t, err)

	logger.Info("不应出现")
	logger.Warn("应当出现")
	_ = logger.Sync()

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "不应出现")
	assert.Contains(t, string(content), "应当出现")
}

// TestWith 测试结构化字段
func TestWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	logger.With("endpoint", "wss://example", "attempt", 2).Info("结构化日志测试")
	NewModuleLogger(logger, "connection").Warnf("模块日志 %d", 1)

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "wss://example", fields["endpoint"])
	assert.EqualValues(t, 2, fields["attempt"])
	assert.Equal(t, "结构化日志测试", entries[0].Message)

	assert.Equal(t, "connection", entries[1].ContextMap()["module"])
	assert.Equal(t, "模块日志 1", entries[1].Message)
}

// TestToZapFields 测试奇数个参数时丢弃最后一个
func TestToZapFields(t *testing.T) {
	fields := toZapFields("a", 1, "b")
	require.Len(t, fields, 1)
	assert.Equal(t, "a", fields[0].Key)

	fields = toZapFields(42, "v")
	require.Len(t, fields, 1)
	assert.Equal(t, "42", fields[0].Key)
}

// TestSetLogger 测试设置和切换全局日志记录器
func TestSetLogger(t *testing.T) {
	original := GetLogger()
	t.Cleanup(func() { SetLogger(original) })

	logger1 := NewNop()
	logger2 := NewNop()

	SetLogger(logger1)
	assert.Same(t, logger1, GetLogger())

	SetLogger(logger2)
	assert.Same(t, logger2, GetLogger())

	SetLogger(nil)
	assert.Same(t, logger2, GetLogger(), "nil 不应覆盖全局日志记录器")

	ResetDefault()
	assert.NotSame(t, logger2, GetLogger())
}

// TestNewModuleLogger 测试空基础 logger
func TestNewModuleLogger(t *testing.T) {
	assert.Nil(t, NewModuleLogger(nil, "api"))
	assert.Nil(t, NewModuleZapLogger(nil, "api"))
	assert.NotNil(t, NewModuleZapLogger(zap.NewNop(), "api"))
}

// TestGlobalHelpers 测试全局日志函数写入当前全局记录器
func TestGlobalHelpers(t *testing.T) {
	original := GetLogger()
	t.Cleanup(func() { SetLogger(original) })

	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(FromZap(zap.New(core)))

	Infof("运行时元数据已加载: pallets=%d", 4)
	Debugf("存储项为空: %s", "System.Number")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "运行时元数据已加载: pallets=4", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "存储项为空: System.Number", entries[1].Message)
}
