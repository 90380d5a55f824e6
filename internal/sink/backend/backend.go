// Package backend opens the sink selected by configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"filiados/internal/config"
	"filiados/internal/credentials"
	"filiados/internal/sink"
	"filiados/internal/sink/sheets"
	"filiados/internal/sink/xlsx"
	"filiados/internal/storage"
)

const (
	Sheets = "sheets"
	XLSX   = "xlsx"
	SQLite = "sqlite"
)

// Opened is a ready sink with the target rows go to. Close releases the
// backend's resources.
type Opened struct {
	Sink   sink.Sink
	Target sink.Target
	Close  func() error
}

func Open(ctx context.Context, cfg config.Config) (Opened, error) {
	switch cfg.Sink {
	case Sheets, "":
		return openSheets(ctx, cfg)
	case XLSX:
		if err := cfg.Require("XLSX_OUTPUT", cfg.XLSXOutput); err != nil {
			return Opened{}, err
		}
		fmt.Printf("sink ready backend=xlsx path=%s\n", cfg.XLSXOutput)
		return Opened{Sink: xlsx.New(cfg.XLSXOutput), Target: localTarget(cfg), Close: noClose}, nil
	case SQLite:
		if err := cfg.Require("DB_PATH", cfg.DBPath); err != nil {
			return Opened{}, err
		}
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			return Opened{}, err
		}
		fmt.Printf("sink ready backend=sqlite path=%s\n", cfg.DBPath)
		return Opened{Sink: db, Target: localTarget(cfg), Close: db.Close}, nil
	default:
		return Opened{}, fmt.Errorf("unsupported sink: %s", cfg.Sink)
	}
}

// NewWriter wraps an opened sink with the configured write pacing.
func NewWriter(cfg config.Config, opened Opened) *sink.Writer {
	rate := 0
	if cfg.Sink == Sheets || cfg.Sink == "" {
		rate = cfg.SheetsWritesRate
	}
	return sink.NewWriter(opened.Sink, sink.NewRateLimiter(rate))
}

func openSheets(ctx context.Context, cfg config.Config) (Opened, error) {
	target, err := sink.ResolveTarget(cfg.SheetID, cfg.SheetWorksheet, cfg.SheetURL)
	if err != nil {
		return Opened{}, err
	}

	blob, from, err := credentials.DefaultChain(cfg.KeyringService, cfg.CredentialsFile).Resolve()
	if err != nil {
		return Opened{}, err
	}

	s, err := sheets.New(ctx, blob, time.Duration(cfg.SheetsTimeoutMs)*time.Millisecond)
	if err != nil {
		return Opened{}, err
	}
	fmt.Printf("sink ready backend=sheets target=%s credentials=%s account=%s\n", target, from, credentials.ClientEmail(blob))
	return Opened{Sink: s, Target: target, Close: noClose}, nil
}

// localTarget keeps the configured worksheet name for local backends.
func localTarget(cfg config.Config) sink.Target {
	if target, err := sink.ResolveTarget(cfg.SheetID, cfg.SheetWorksheet, cfg.SheetURL); err == nil {
		return target
	}
	return sink.Target{Worksheet: cfg.SheetWorksheet}
}

func noClose() error { return nil }
