package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/imagelab/cmd"
	"github.com/tphakala/imagelab/internal/app"
	"github.com/tphakala/imagelab/internal/buildinfo"
)

// Set at build time via -ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(&buildinfo.Context{Version: version, BuildDate: buildDate})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing configuration: %v\n", err)
		return 1
	}
	// PersistentPostRunE is skipped when a command fails
	defer func() { _ = rt.Close() }()

	if err := cmd.RootCommand(rt).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
