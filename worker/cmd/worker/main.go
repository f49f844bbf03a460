package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ykhdr/crack-campaign/worker/pkg/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := worker.Main(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
