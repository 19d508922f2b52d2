package main

import (
	"os"

	"github.com/azniosman/Project-Fortress/internal/cli"
	"github.com/azniosman/Project-Fortress/internal/logging"
)

// main is the entry point for the fortress CLI binary.
func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
