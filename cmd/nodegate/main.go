// Command nodegate 运行 Substrate 节点 HTTP 代理，并提供调用代理的命令行客户端
package main

func main() {
	Execute()
}
