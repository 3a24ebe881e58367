package main

import (
	"context"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var methodsType string

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "列出节点支持的方法",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := getClient()
		if err != nil {
			return err
		}
		methods, err := client.ListMethods(context.Background(), globalFlags.Network, methodsType)
		if err != nil {
			return err
		}
		return pterm.DefaultTable.
			WithHasHeader(true).
			WithWriter(cmd.OutOrStdout()).
			WithData(methodsTable(methods)).
			Render()
	},
}

func init() {
	methodsCmd.Flags().StringVarP(&methodsType, "type", "t", "tx", "能力类别: consts|query|tx|rpc|derive")
}

// methodsTable 按命名空间排序的表格数据，首行为表头
func methodsTable(methods map[string][]string) pterm.TableData {
	namespaces := make([]string, 0, len(methods))
	for ns := range methods {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	data := pterm.TableData{{"Namespace", "Methods"}}
	for _, ns := range namespaces {
		data = append(data, []string{ns, strings.Join(methods[ns], ", ")})
	}
	return data
}
