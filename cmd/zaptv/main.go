// Package main is the entry point for the zaptv application.
package main

import (
	"os"

	"github.com/zaptv/zaptv/cmd/zaptv/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
