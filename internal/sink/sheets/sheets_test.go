package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	gsheets "google.golang.org/api/sheets/v4"

	"filiados/internal/sink"
)

type fakeAPI struct {
	tabs     []*gsheets.SheetProperties
	values   map[string][][]interface{}
	appended map[string][][]interface{}
	added    []string
	listed   int
	fail     error
}

func newFakeAPI(tabs ...*gsheets.SheetProperties) *fakeAPI {
	return &fakeAPI{tabs: tabs, values: map[string][][]interface{}{}, appended: map[string][][]interface{}{}}
}

func (f *fakeAPI) Worksheets(ctx context.Context, id string) ([]*gsheets.SheetProperties, error) {
	f.listed++
	return f.tabs, nil
}

func (f *fakeAPI) AddWorksheet(ctx context.Context, id, title string) (*gsheets.SheetProperties, error) {
	f.added = append(f.added, title)
	tab := &gsheets.SheetProperties{SheetId: int64(100 + len(f.tabs)), Title: title}
	f.tabs = append(f.tabs, tab)
	return tab, nil
}

func (f *fakeAPI) Values(ctx context.Context, id, rng string) ([][]interface{}, error) {
	return f.values[rng], nil
}

func (f *fakeAPI) Append(ctx context.Context, id, rng string, values [][]interface{}) error {
	if f.fail != nil {
		return f.fail
	}
	f.appended[rng] = append(f.appended[rng], values...)
	return nil
}

func gid(v int64) *int64 { return &v }

func TestWorksheetResolution(t *testing.T) {
	tabs := []*gsheets.SheetProperties{
		{SheetId: 0, Title: "Respostas"},
		{SheetId: 42, Title: "Cultura"},
	}
	tests := []struct {
		name   string
		target sink.Target
		want   string
	}{
		{"by gid", sink.Target{SpreadsheetID: "x", SheetID: gid(42)}, "Cultura"},
		{"by name", sink.Target{SpreadsheetID: "x", Worksheet: "Respostas"}, "Respostas"},
		{"first tab", sink.Target{SpreadsheetID: "x"}, "Respostas"},
		{"unknown gid falls back to first", sink.Target{SpreadsheetID: "x", SheetID: gid(7)}, "Respostas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickWorksheet(tabs, tt.target)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got=%s want=%s", got, tt.want)
			}
		})
	}
}

func TestMissingWorksheetIsCreated(t *testing.T) {
	fake := newFakeAPI(&gsheets.SheetProperties{SheetId: 0, Title: "Página1"})
	s := newSink(fake, 0)
	target := sink.Target{SpreadsheetID: "x", Worksheet: "Agrário"}

	if err := s.Append(context.Background(), target, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(context.Background(), target, []string{"b"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Agrário"}, fake.added); diff != "" {
		t.Fatalf("added mismatch (-want +got):\n%s", diff)
	}
	if fake.listed != 1 {
		t.Fatalf("worksheet lookups=%d, want cached after first", fake.listed)
	}
	if got := len(fake.appended["'Agrário'"]); got != 2 {
		t.Fatalf("appended=%d", got)
	}
}

func TestEnsureHeaderOnlyWhenEmpty(t *testing.T) {
	fake := newFakeAPI(&gsheets.SheetProperties{SheetId: 0, Title: "Respostas"})
	s := newSink(fake, 0)
	target := sink.Target{SpreadsheetID: "x"}
	header := []string{"timestamp", "nome_do_filiado"}

	if err := s.EnsureHeader(context.Background(), target, header); err != nil {
		t.Fatal(err)
	}
	want := [][]interface{}{{"timestamp", "nome_do_filiado"}}
	if diff := cmp.Diff(want, fake.appended["'Respostas'"]); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}

	fake.values["'Respostas'!1:1"] = [][]interface{}{{"timestamp"}}
	if err := s.EnsureHeader(context.Background(), target, header); err != nil {
		t.Fatal(err)
	}
	if got := len(fake.appended["'Respostas'"]); got != 1 {
		t.Fatalf("header written again, rows=%d", got)
	}
}

func TestAppendErrorIsReturned(t *testing.T) {
	fake := newFakeAPI(&gsheets.SheetProperties{Title: "Respostas"})
	fake.fail = errors.New("googleapi: Error 403: The caller does not have permission")
	s := newSink(fake, 0)

	err := s.Append(context.Background(), sink.Target{SpreadsheetID: "x"}, []string{"a"})
	if !errors.Is(err, fake.fail) {
		t.Fatalf("err=%v", err)
	}
}

func TestQuoteTitle(t *testing.T) {
	if got := quoteTitle("Dia d'Água"); got != "'Dia d''Água'" {
		t.Fatalf("got=%s", got)
	}
}
