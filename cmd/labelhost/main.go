// Package main provides the entry point for the labelhost CLI.
package main

import (
	"os"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
)

func main() {
	if err := Execute(); err != nil {
		printError(err)
		os.Exit(compiler.ExitStatus(err))
	}
}
