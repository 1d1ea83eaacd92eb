// Package main provides the entry point for the playlint CLI.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		if errors.Is(err, errLintFailed) {
			os.Exit(2)
		}
		fatal(err)
		os.Exit(1)
	}
}
