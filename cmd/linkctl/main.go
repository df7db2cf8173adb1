package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"

	"github.com/raaihank/link-sentinel/internal/failure"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.Println(describe(err))
		cancel()
		os.Exit(1)
	}
}

// describe returns the caller-facing text of err
func describe(err error) string {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return string(fe.Kind) + ": " + failure.MessageOf(err)
	}
	return err.Error()
}
