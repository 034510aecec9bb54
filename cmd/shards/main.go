package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"shards/internal/errutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("Error: " + errutil.Format(err) + "\n")
		return errutil.ExitCode(err)
	}
	return errutil.ExitOK
}
