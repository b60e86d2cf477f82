package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcin-skalski/grove/internal/cli"
	"github.com/marcin-skalski/grove/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd()
	err := root.ExecuteContext(ctx)
	_ = logging.CloseFile()
	if err != nil {
		os.Exit(1)
	}
}
