// Package signals turns SIGINT into a flag that long-running loops poll
// between steps. A second SIGINT exits immediately with status 130.
package signals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// ExitCode is used when a second interrupt forces termination.
const ExitCode = 130

// Flag records whether an interrupt has been received.
type Flag struct {
	received atomic.Bool
	exit     func(int)
}

// New returns a Flag that is not yet listening.
func New() *Flag {
	return &Flag{exit: os.Exit}
}

// Received reports whether at least one interrupt arrived.
func (f *Flag) Received() bool {
	return f.received.Load()
}

// handle records one signal. The first only sets the flag.
func (f *Flag) handle(ctx context.Context) {
	if f.received.Swap(true) {
		slog.WarnContext(ctx, "signals.Flag: second interrupt, exiting")
		f.exit(ExitCode)
		return
	}
	slog.InfoContext(ctx, "signals.Flag: interrupt received")
}

// Install starts listening for SIGINT and SIGTERM until ctx is done.
func (f *Flag) Install(ctx context.Context) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				f.handle(ctx)
			}
		}
	}()
}
