// Package app 组装并运行代理服务
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/weisyn/nodegate/internal/config"
	"github.com/weisyn/nodegate/pkg/types"
)

const (
	startTimeout = 15 * time.Second
	// stopTimeout 停止时等待进行中的请求与连接关闭的时间
	stopTimeout = 30 * time.Second
)

// App 运行中的应用
type App interface {
	// Stop 停止应用
	Stop() error

	// Wait 阻塞直到收到退出信号，然后停止应用
	Wait() error

	// Done 收到 SIGINT/SIGTERM 时可读
	Done() <-chan os.Signal
}

type internalApp struct {
	fxApp *fx.App
}

// Stop 停止应用
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := a.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}

// Wait 等待 SIGINT/SIGTERM
func (a *internalApp) Wait() error {
	<-a.fxApp.Done()
	return a.Stop()
}

// Done fx 的退出信号通道
func (a *internalApp) Done() <-chan os.Signal {
	return a.fxApp.Done()
}

// Start 加载配置、组装模块并启动
func Start(appOptions ...Option) (App, error) {
	opts := newOptions(appOptions...)

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	opts.appConfig = cfg

	fxApp := fx.New(NewBootstrap(opts).Options()...)
	if err := fxApp.Err(); err != nil {
		return nil, fmt.Errorf("创建应用失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := fxApp.Start(ctx); err != nil {
		return nil, fmt.Errorf("启动应用失败: %w", err)
	}
	return &internalApp{fxApp: fxApp}, nil
}

// loadConfig 配置来源优先级：WithAppConfig > 配置文件 > 嵌入配置，后两者叠加环境变量
func loadConfig(opts *options) (*types.AppConfig, error) {
	if opts.appConfig != nil {
		return opts.appConfig, nil
	}
	if opts.configFilePath != "" {
		return config.LoadFile(opts.configFilePath)
	}
	cfg, err := config.Parse(opts.embeddedConfig)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
