// Package main provides the entry point for the lodestar CLI tool.
package main

import (
	"github.com/lodestar-gis/lodestar/cmd/lodestar/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
