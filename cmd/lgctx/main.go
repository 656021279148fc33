// Package main is the entry point for the lgctx CLI tool.
package main

import (
	"os"

	"github.com/lgctx/lgctx/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
