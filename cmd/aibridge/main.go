// Package main provides the entry point for the aibridge MCP server.
package main

import (
	"fmt"
	"os"

	"github.com/aibridge-dev/aibridge/cmd/aibridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
