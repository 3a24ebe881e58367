package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/nodegate/client/core/transport"
)

// GlobalFlags 客户端子命令共用的标志
type GlobalFlags struct {
	Server  string        // 代理服务地址
	Network string        // 节点 WebSocket 端点
	Timeout time.Duration // 请求超时
}

var globalFlags GlobalFlags

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "nodegate",
	Short: "Substrate 节点 HTTP 代理",
	Long: `nodegate - 将 Substrate 节点的动态 API 暴露为 HTTP 接口

服务端:
  nodegate serve --config config.json

客户端:
  nodegate methods --network wss://rpc.polkadot.io --type query
  nodegate call --network wss://rpc.polkadot.io query system account '"5F..."'`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 输出被重定向时去掉颜色与样式
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			pterm.DisableStyling()
		}
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.Server, "server", "http://127.0.0.1:3000", "代理服务地址")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Network, "network", "", "节点 WebSocket 端点")
	rootCmd.PersistentFlags().DurationVar(&globalFlags.Timeout, "timeout", 60*time.Second, "请求超时")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(versionCmd)
}

// getClient 创建代理客户端
func getClient() (*transport.ProxyClient, error) {
	if globalFlags.Network == "" {
		return nil, fmt.Errorf("--network 不能为空")
	}
	return transport.NewProxyClient(globalFlags.Server, globalFlags.Timeout), nil
}
