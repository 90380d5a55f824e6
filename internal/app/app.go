// Package app wires configuration, table, sink and surfaces together for the
// binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"filiados/internal/config"
	"filiados/internal/listener"
	"filiados/internal/pipeline"
	"filiados/internal/sink/backend"
	"filiados/internal/table"
	"filiados/internal/web"
)

// Build returns a ready service and a function releasing its sink.
func Build(ctx context.Context, cfg config.Config) (*pipeline.Service, func() error, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	tablePath, err := cfg.ResolveTablePath(cwd)
	if err != nil {
		return nil, nil, err
	}

	opened, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	writer := backend.NewWriter(cfg, opened)
	svc := pipeline.NewService(cfg, tablePath, table.NewCache(), writer, opened.Target)
	return svc, opened.Close, nil
}

// Serve runs the HTTP API and the table watcher until ctx is done or either
// of them fails.
func Serve(ctx context.Context, cfg config.Config, svc *pipeline.Service) error {
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           web.NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	watcher := listener.NewService(svc, time.Duration(cfg.TableWatchIntervalSec)*time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("http server starting addr=%s table=%s\n", cfg.HTTPAddr, svc.TablePath())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	return g.Wait()
}
