// Package main is the entry point for the patchkit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/patchkit/internal/cli"
)

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
