package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/nodegate/client/core/transport"
)

var callAt string

var callCmd = &cobra.Command{
	Use:   "call <type> <namespace> <method> [params...]",
	Short: "调用节点方法",
	Long: `通过代理调用节点方法并输出 JSON 结果。

每个参数按 JSON 解析，无法解析时作为字符串传递：
  nodegate call --network wss://... query system account 5F...
  nodegate call --network wss://... rpc chain getBlockHash 0
  nodegate call --network wss://... query system number --at 0x...`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := getClient()
		if err != nil {
			return err
		}
		raw, err := client.Call(context.Background(), transport.CallRequest{
			Type:      args[0],
			Namespace: args[1],
			Method:    args[2],
			Params:    parseParams(args[3:]),
			Network:   globalFlags.Network,
			BlockHash: callAt,
		})
		if err != nil {
			return err
		}

		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			out.Reset()
			out.Write(raw)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out.String())
		return err
	},
}

func init() {
	callCmd.Flags().StringVar(&callAt, "at", "", "在指定区块哈希的历史状态上调用")
}

// parseParams 合法 JSON 原样传递，否则编码为 JSON 字符串
func parseParams(args []string) []json.RawMessage {
	params := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		if json.Valid([]byte(a)) {
			params = append(params, json.RawMessage(a))
			continue
		}
		quoted, _ := json.Marshal(a)
		params = append(params, quoted)
	}
	return params
}
