package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"filiados/internal"
	"filiados/internal/config"
	"filiados/internal/sink"
	"filiados/internal/table"
	"filiados/internal/util"
)

var ErrTableUnavailable = errors.New("registrant table unavailable")

// Service runs the lookup and submission flow against one table file and one
// sink target. It is safe for concurrent use.
type Service struct {
	cfg       config.Config
	tablePath string
	cache     *table.Cache
	writer    *sink.Writer
	target    sink.Target
	assembler *Assembler
	aliases   AliasSet

	mu      sync.Mutex
	loaded  *table.Table
	locator *Locator
}

func NewService(cfg config.Config, tablePath string, cache *table.Cache, writer *sink.Writer, target sink.Target) *Service {
	return &Service{
		cfg:       cfg,
		tablePath: tablePath,
		cache:     cache,
		writer:    writer,
		target:    target,
		assembler: NewAssembler(cfg.MultiMunicipality, cfg.Sectors),
		aliases:   DefaultAliases(),
	}
}

func (s *Service) TablePath() string { return s.tablePath }

func (s *Service) Target() sink.Target { return s.target }

func (s *Service) Header() []string { return s.assembler.Header() }

func (s *Service) Sectors() []string { return s.assembler.Sectors() }

func (s *Service) Multi() bool { return s.cfg.MultiMunicipality }

// Locator returns the locator for the current table, loading and resolving
// it on first use or after an invalidation.
func (s *Service) Locator() (*Locator, error) {
	tbl, err := s.cache.Get(table.FileKey(s.tablePath), func() (*table.Table, error) {
		return table.LoadFile(s.tablePath)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded == tbl && s.locator != nil {
		return s.locator, nil
	}

	cols, err := ResolveColumns(tbl.Columns, s.aliases, s.cfg.MultiMunicipality)
	if err != nil {
		return nil, err
	}
	s.loaded = tbl
	s.locator = NewLocator(tbl, cols, LocatorOptions{
		Multi:        s.cfg.MultiMunicipality,
		NameLimit:    s.cfg.NameMatchLimit,
		NameMinChars: s.cfg.NameMinChars,
	})
	fmt.Printf("table loaded path=%s rows=%d multi=%t\n", s.tablePath, len(tbl.Rows), s.cfg.MultiMunicipality)
	return s.locator, nil
}

func (s *Service) Lookup(q Query) (internal.Lookup, error) {
	loc, err := s.Locator()
	if err != nil {
		return internal.Lookup{}, err
	}
	return loc.Lookup(q), nil
}

func (s *Service) Select(row int) (internal.Record, error) {
	loc, err := s.Locator()
	if err != nil {
		return internal.Record{}, err
	}
	return loc.Select(row)
}

// Submit assembles the payload for in and appends it to the sink. A failed
// append is returned as is; nothing is retried.
func (s *Service) Submit(ctx context.Context, in internal.SubmissionInput) (internal.Payload, error) {
	payload, err := s.assembler.Assemble(in)
	if err != nil {
		return internal.Payload{}, err
	}
	if err := s.writer.Write(ctx, s.target, payload.Keys, payload.Values); err != nil {
		fmt.Printf("submission failed id=%s target=%s err=%v\n", payload.ID, s.target, err)
		return internal.Payload{}, err
	}
	fmt.Printf("submission appended id=%s target=%s row=%d\n", payload.ID, s.target, in.Record.Row)
	return payload, nil
}

// Invalidate drops the cached table so the next lookup reads the file again.
func (s *Service) Invalidate() bool {
	dropped := s.cache.Invalidate(table.FileKey(s.tablePath))
	s.mu.Lock()
	s.loaded, s.locator = nil, nil
	s.mu.Unlock()
	return dropped
}

// DisplayValue renders a record field for the user, substituting the
// placeholder for missing values.
func DisplayValue(v string) string {
	return util.CleanValue(v, util.DisplayPlaceholder)
}

// IsConfigError reports errors that stop every interaction until the
// operator fixes the table or the credentials.
func IsConfigError(err error) bool {
	var missing *MissingColumnsError
	return errors.As(err, &missing) || errors.Is(err, ErrTableUnavailable)
}
