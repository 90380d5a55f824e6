// Package sheets appends rows to a Google Sheets worksheet using a service
// account.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"filiados/internal/sink"
)

// api is the slice of the Sheets service the sink uses.
type api interface {
	Worksheets(ctx context.Context, spreadsheetID string) ([]*gsheets.SheetProperties, error)
	AddWorksheet(ctx context.Context, spreadsheetID, title string) (*gsheets.SheetProperties, error)
	Values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	Append(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
}

type Sink struct {
	api     api
	timeout time.Duration

	mu     sync.Mutex
	titles map[string]string
}

// New authenticates with the service-account key in credentialsJSON.
func New(ctx context.Context, credentialsJSON []byte, timeout time.Duration) (*Sink, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("load service account: %w", err)
	}
	tokenSource := oauth2.ReuseTokenSource(nil, creds.TokenSource)
	svc, err := gsheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}
	return newSink(serviceAPI{svc: svc}, timeout), nil
}

func newSink(a api, timeout time.Duration) *Sink {
	return &Sink{api: a, timeout: timeout, titles: map[string]string{}}
}

func (s *Sink) EnsureHeader(ctx context.Context, target sink.Target, header []string) error {
	title, err := s.worksheet(ctx, target)
	if err != nil {
		return err
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	existing, err := s.api.Values(callCtx, target.SpreadsheetID, quoteTitle(title)+"!1:1")
	if err != nil {
		return fmt.Errorf("read header of %s: %w", title, err)
	}
	if hasValues(existing) {
		return nil
	}
	return s.append(ctx, target.SpreadsheetID, title, header)
}

func (s *Sink) Append(ctx context.Context, target sink.Target, row []string) error {
	title, err := s.worksheet(ctx, target)
	if err != nil {
		return err
	}
	return s.append(ctx, target.SpreadsheetID, title, row)
}

func (s *Sink) append(ctx context.Context, spreadsheetID, title string, row []string) error {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	if err := s.api.Append(callCtx, spreadsheetID, quoteTitle(title), [][]interface{}{values}); err != nil {
		return fmt.Errorf("append to %s: %w", title, err)
	}
	return nil
}

// worksheet resolves the tab title for target: by tab id, then by name
// (created when absent), then the first tab.
func (s *Sink) worksheet(ctx context.Context, target sink.Target) (string, error) {
	if target.SpreadsheetID == "" {
		return "", sink.ErrInvalidTarget
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := target.String()
	if title, ok := s.titles[key]; ok {
		return title, nil
	}

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	tabs, err := s.api.Worksheets(callCtx, target.SpreadsheetID)
	if err != nil {
		return "", fmt.Errorf("open spreadsheet %s: %w", target.SpreadsheetID, err)
	}

	title, err := pickWorksheet(tabs, target)
	if errors.Is(err, errNoWorksheet) && target.Worksheet != "" {
		created, addErr := s.api.AddWorksheet(callCtx, target.SpreadsheetID, target.Worksheet)
		if addErr != nil {
			return "", fmt.Errorf("create worksheet %s: %w", target.Worksheet, addErr)
		}
		title, err = created.Title, nil
	}
	if err != nil {
		return "", err
	}
	s.titles[key] = title
	return title, nil
}

var errNoWorksheet = errors.New("worksheet not found")

func pickWorksheet(tabs []*gsheets.SheetProperties, target sink.Target) (string, error) {
	if target.SheetID != nil {
		for _, tab := range tabs {
			if tab != nil && tab.SheetId == *target.SheetID {
				return tab.Title, nil
			}
		}
	}
	if target.Worksheet != "" {
		for _, tab := range tabs {
			if tab != nil && tab.Title == target.Worksheet {
				return tab.Title, nil
			}
		}
		return "", fmt.Errorf("%w: %s", errNoWorksheet, target.Worksheet)
	}
	for _, tab := range tabs {
		if tab != nil {
			return tab.Title, nil
		}
	}
	return "", fmt.Errorf("%w: spreadsheet has no tabs", errNoWorksheet)
}

func (s *Sink) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func hasValues(rows [][]interface{}) bool {
	for _, row := range rows {
		for _, v := range row {
			if strings.TrimSpace(fmt.Sprint(v)) != "" {
				return true
			}
		}
	}
	return false
}

type serviceAPI struct {
	svc *gsheets.Service
}

func (a serviceAPI) Worksheets(ctx context.Context, spreadsheetID string) ([]*gsheets.SheetProperties, error) {
	resp, err := a.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([]*gsheets.SheetProperties, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh != nil && sh.Properties != nil {
			out = append(out, sh.Properties)
		}
	}
	return out, nil
}

func (a serviceAPI) AddWorksheet(ctx context.Context, spreadsheetID, title string) (*gsheets.SheetProperties, error) {
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: title}},
		}},
	}
	resp, err := a.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return &gsheets.SheetProperties{Title: title}, nil
	}
	return resp.Replies[0].AddSheet.Properties, nil
}

func (a serviceAPI) Values(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (a serviceAPI) Append(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
