package backend

import (
	"context"
	"path/filepath"
	"testing"

	"filiados/internal/config"
	"filiados/internal/sink/xlsx"
	"filiados/internal/storage"
)

func TestOpenLocalBackends(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		XLSXOutput:     filepath.Join(dir, "respostas.xlsx"),
		DBPath:         filepath.Join(dir, "respostas.db"),
		SheetWorksheet: "Respostas",
	}

	cfg.Sink = XLSX
	opened, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := opened.Sink.(*xlsx.Sink); !ok {
		t.Fatalf("sink=%T", opened.Sink)
	}
	if opened.Target.Worksheet != "Respostas" {
		t.Fatalf("target=%+v", opened.Target)
	}

	cfg.Sink = SQLite
	opened, err = Open(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer opened.Close()
	if _, ok := opened.Sink.(*storage.DB); !ok {
		t.Fatalf("sink=%T", opened.Sink)
	}
}

func TestOpenRejectsUnknownSink(t *testing.T) {
	if _, err := Open(context.Background(), config.Config{Sink: "ftp"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSheetsRequiresValidTarget(t *testing.T) {
	_, err := Open(context.Background(), config.Config{Sink: Sheets, SheetURL: "not a sheet"})
	if err == nil {
		t.Fatal("expected target error")
	}
}
