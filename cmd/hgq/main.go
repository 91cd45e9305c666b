// Package main is the entry point for the hgq CLI tool.
package main

import (
	"os"

	"github.com/roach88/hgq/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
