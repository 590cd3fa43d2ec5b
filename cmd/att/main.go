// Package main is the entry point for the att CLI.
//
// Usage:
//
//	att [flags] <command> [subcommand] [args]
//
// Commands:
//
//	info       - Summarize a debug file
//	get        - Print one value or scope
//	keys       - List the children of a scope
//	select     - Run a wildcard query
//	gather     - Collect matches into one dense array
//	query      - Run a batch of queries from a file
//	write      - Render a debug file from a YAML description
//	import     - Store a debug file in the trace database
//	runs       - List and remove stored runs
//	config     - Show and edit configuration
//	version    - Show version information
package main

import (
	"os"

	"github.com/audiotesttools/att/cmd/att/commands"
	"github.com/audiotesttools/att/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
