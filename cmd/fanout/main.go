package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aryankumar/fanout/internal/cli"
	"github.com/aryankumar/fanout/internal/util"
)

func main() {
	// Cancel running units on SIGINT/SIGTERM
	ctx, cancel := util.SetupSignalHandler(context.Background())

	err := cli.Execute(ctx)
	cancel()
	if err != nil {
		// Failures of a run are already on stdout as a status line
		if !cli.IsReported(err) {
			slog.Error("command failed", "error", err, "hint", util.FriendlyError(err))
		}
		os.Exit(1)
	}
}
