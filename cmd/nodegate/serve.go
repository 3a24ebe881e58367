package main

import (
	"github.com/spf13/cobra"

	"github.com/weisyn/nodegate/configs"
	"github.com/weisyn/nodegate/internal/app"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动代理服务",
	Long:  "启动 HTTP 代理服务。未指定 --config 时使用内置默认配置，NODEGATE_* 环境变量覆盖配置文件。",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []app.Option{app.WithEmbeddedConfig(configs.GetDefaultConfig())}
		if serveConfigPath != "" {
			opts = append(opts, app.WithConfigFile(serveConfigPath))
		}

		a, err := app.Start(opts...)
		if err != nil {
			return err
		}
		return a.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "配置文件路径")
}
