package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/pendeploy/compute-deployer/cli"
	"github.com/pendeploy/compute-deployer/logging"
)

func main() {
	logger := logging.NewLogger(os.Stderr, slog.LevelInfo)
	if err := cli.Execute(context.Background(), os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
