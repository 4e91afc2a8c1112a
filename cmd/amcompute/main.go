// Package main is the entry point for the amcompute CLI.
//
// Usage:
//
//	amcompute [flags] <command> [args]
//
// Commands:
//
//	compute      - Score utterances with an acoustic model
//	add-penalty  - Add word insertion penalties to lattices
//	table        - Table utilities (import)
//	version      - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/amcompute/cmd/amcompute/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		code := commands.ExitCode(err)
		if code == commands.ExitFailure {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(code)
	}
}
