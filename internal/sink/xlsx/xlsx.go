// Package xlsx appends rows to a local workbook. It stands in for the
// spreadsheet when no Google credentials are available.
package xlsx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"filiados/internal/sink"
)

type Sink struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Sink {
	return &Sink{path: path}
}

func (s *Sink) Path() string { return s.path }

func (s *Sink) EnsureHeader(ctx context.Context, target sink.Target, header []string) error {
	return s.update(ctx, target, func(f *excelize.File, sheet string, used int) error {
		if used > 0 {
			return nil
		}
		return writeRow(f, sheet, 1, header)
	})
}

func (s *Sink) Append(ctx context.Context, target sink.Target, row []string) error {
	return s.update(ctx, target, func(f *excelize.File, sheet string, used int) error {
		return writeRow(f, sheet, used+1, row)
	})
}

// Rows returns every row of the target worksheet, header included.
func (s *Sink) Rows(target sink.Target) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(sheetName(f, target))
}

func (s *Sink) update(ctx context.Context, target sink.Target, apply func(f *excelize.File, sheet string, used int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, created, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()

	sheet := sheetName(f, target)
	if created && target.Worksheet != "" {
		// A fresh workbook carries a default sheet; rename it rather than
		// leaving it empty next to the target.
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return err
		}
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	if err := apply(f, sheet, len(rows)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(s.path)
}

func (s *Sink) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return f, false, err
}

func sheetName(f *excelize.File, target sink.Target) string {
	if target.Worksheet != "" {
		return target.Worksheet
	}
	return f.GetSheetName(0)
}

func writeRow(f *excelize.File, sheet string, rowNo int, values []string) error {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}
