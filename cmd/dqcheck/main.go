// Command dqcheck validates tabular datasets against expectation suites and
// reports the results.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// register all result store backends with the storage factory.
	_ "dqcheck/internal/storage/all"
)

// version is set at build time via -ldflags.
var version = "dev"

// Exit codes: 1 for errors, 2 when the run completed but checks failed.
const (
	exitError        = 1
	exitChecksFailed = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Getenv).ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, errChecksFailed):
		stop()
		os.Exit(exitChecksFailed)
	default:
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitError)
	}
}
