// Package main provides the panelviz command-line tool.
package main

import (
	"fmt"
	"os"

	"panelviz/internal/cli"
	"panelviz/internal/version"
)

func main() {
	root := cli.NewRootCmd(version.Version, version.GitCommit, version.BuildTime)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
