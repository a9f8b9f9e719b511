package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/amdu/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.app().Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case errors.Is(err, shared.ErrServiceUnavailable):
			logger.Error("Steam is not available. Start Steam and check steam.library_path in your config.", "error", err)
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
