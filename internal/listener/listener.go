package listener

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Table is what the watcher needs from the lookup service.
type Table interface {
	TablePath() string
	Invalidate() bool
}

type fileState struct {
	modTime time.Time
	size    int64
}

// Service polls the registrant table on disk and drops the cached copy when
// the file changes, so edits are picked up without a restart.
type Service struct {
	table    Table
	interval time.Duration

	last fileState
	seen bool
}

func NewService(table Table, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{table: table, interval: interval}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if _, err := s.runCycle(); err != nil {
			fmt.Printf("table watcher cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
	}
}

// runCycle reports whether the table changed since the previous cycle. The
// first cycle only records the current state.
func (s *Service) runCycle() (bool, error) {
	path := s.table.TablePath()
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	state := fileState{modTime: info.ModTime(), size: info.Size()}
	if !s.seen {
		s.last, s.seen = state, true
		return false, nil
	}
	if state.modTime.Equal(s.last.modTime) && state.size == s.last.size {
		return false, nil
	}

	s.last = state
	dropped := s.table.Invalidate()
	fmt.Printf("table changed path=%s size=%d dropped=%t\n", path, state.size, dropped)
	return true, nil
}
