package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/weisyn/nodegate/pkg/types"
)

// EnvOverrides 环境变量覆盖项，优先级高于配置文件
type EnvOverrides struct {
	HTTPHost     *string `env:"NODEGATE_HTTP_HOST"`
	HTTPPort     *int    `env:"NODEGATE_HTTP_PORT"`
	LogLevel     *string `env:"NODEGATE_LOG_LEVEL"`
	LogFile      *string `env:"NODEGATE_LOG_FILE"`
	CallTimeout  *string `env:"NODEGATE_CALL_TIMEOUT"`
	CacheBackend *string `env:"NODEGATE_CACHE_BACKEND"`
	RedisAddr    *string `env:"NODEGATE_REDIS_ADDR"`
	RedisPass    *string `env:"NODEGATE_REDIS_PASSWORD"`
}

// Parse 解析 JSON 配置，data 为空时返回空配置
func Parse(data []byte) (*types.AppConfig, error) {
	cfg := &types.AppConfig{}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile 读取配置文件并应用环境变量覆盖
func LoadFile(path string) (*types.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 将环境变量覆盖写入配置
func ApplyEnv(cfg *types.AppConfig) error {
	var o EnvOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.HTTPHost != nil || o.HTTPPort != nil {
		if cfg.API == nil {
			cfg.API = &types.UserAPIConfig{}
		}
		if o.HTTPHost != nil {
			cfg.API.HTTPHost = o.HTTPHost
		}
		if o.HTTPPort != nil {
			cfg.API.HTTPPort = o.HTTPPort
		}
	}
	if o.LogLevel != nil || o.LogFile != nil {
		if cfg.Log == nil {
			cfg.Log = &types.UserLogConfig{}
		}
		if o.LogLevel != nil {
			cfg.Log.Level = o.LogLevel
		}
		if o.LogFile != nil {
			cfg.Log.FilePath = o.LogFile
		}
	}
	if o.CallTimeout != nil {
		if cfg.Upstream == nil {
			cfg.Upstream = &types.UserUpstreamConfig{}
		}
		cfg.Upstream.CallTimeout = o.CallTimeout
	}
	if o.CacheBackend != nil || o.RedisAddr != nil || o.RedisPass != nil {
		if cfg.Cache == nil {
			cfg.Cache = &types.UserCacheConfig{}
		}
		if o.CacheBackend != nil {
			cfg.Cache.Backend = o.CacheBackend
		}
		if o.RedisAddr != nil {
			cfg.Cache.RedisAddr = o.RedisAddr
		}
		if o.RedisPass != nil {
			cfg.Cache.RedisPassword = o.RedisPass
		}
	}
	return nil
}
