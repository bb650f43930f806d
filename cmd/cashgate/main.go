// Package main is the entry point for the cashgate gateway.
package main

import (
	"os"

	"github.com/mrz1836/cashgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
