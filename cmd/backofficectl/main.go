package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/backoffice/backoffice/cmd/backofficectl/cli"
	"github.com/backoffice/backoffice/internal/app"
)

func main() {
	_ = app.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.DefaultEnv()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
