package main

import (
	"github.com/turtacn/authcore/cmd/cli"
)

// main is the entry point for the authcore-admin command-line tool.
// main 是 authcore-admin 命令行工具的入口点。
func main() {
	cli.Execute()
}
