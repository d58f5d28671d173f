// The main package for the leadscout executable.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/myspacecornelius/leadscout/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.ExecuteContext(ctx)
}
