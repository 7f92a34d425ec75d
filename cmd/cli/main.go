// Package main is the entry point for the cartflow CLI.
// The CLI is the operator terminal tool for interacting with the engine API.
package main

import (
	"os"

	"cartflow/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
