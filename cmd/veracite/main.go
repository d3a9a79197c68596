// Package main provides the entry point for the veracite CLI.
package main

import (
	"os"

	"github.com/veracite/veracite/cmd/veracite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
