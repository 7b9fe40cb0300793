// Package main is the entry point for the emailbattle CLI.
//
// Usage:
//
//	emailbattle [flags] <command> [args]
//
// Commands:
//
//	run       - Run one battle and print the emails and result
//	serve     - Serve battles over HTTP and websocket
//	graph     - Show the battle graph
//	models    - List configured models
//	personas  - List persona scripts
//	version   - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/emailbattle/cmd/emailbattle/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
