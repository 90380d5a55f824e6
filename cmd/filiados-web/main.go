package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"filiados/internal/app"
	"filiados/internal/config"
)

func main() {
	cfg, err := config.Load()
	must(err)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, closeSink, err := app.Build(ctx, cfg)
	must(err)
	defer closeSink()

	must(app.Serve(ctx, cfg, svc))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
