package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/neurobridge-threads/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		return fmt.Errorf("init worker: %w", err)
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	a.Log.Info("Thread detection worker running")
	<-ctx.Done()
	a.Log.Info("Shutting down thread detection worker")
	return nil
}
