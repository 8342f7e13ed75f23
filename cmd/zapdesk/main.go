// Package main is the entry point for the zapdesk CLI.
package main

import (
	"os"

	"github.com/zapdesk/zapdesk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
