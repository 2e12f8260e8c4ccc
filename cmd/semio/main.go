// Command semio inspects and edits kits of connected pieces: it flattens
// designs, diffs and clusters them, evaluates kit scripts and moves kits
// in and out of the local store.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
