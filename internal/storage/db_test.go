package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"filiados/internal/sink"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "respostas.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestHeaderWrittenOnce(t *testing.T) {
	db := openTestDB(t)
	target := sink.Target{SpreadsheetID: "sheet"}
	ctx := context.Background()

	if err := db.EnsureHeader(ctx, target, []string{"timestamp", "setorial"}); err != nil {
		t.Fatal(err)
	}
	if err := db.EnsureHeader(ctx, target, []string{"other"}); err != nil {
		t.Fatal(err)
	}
	got, err := db.Header(target)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"timestamp", "setorial"}, got); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}

	missing, err := db.Header(sink.Target{SpreadsheetID: "other"})
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("unexpected header %v", missing)
	}
}

func TestAppendKeepsOrderPerTarget(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a := sink.Target{SpreadsheetID: "sheet", Worksheet: "A"}
	b := sink.Target{SpreadsheetID: "sheet", Worksheet: "B"}

	for _, step := range []struct {
		target sink.Target
		row    []string
	}{
		{a, []string{"1", "Maria"}},
		{b, []string{"2", "João"}},
		{a, []string{"3", "Ana"}},
	} {
		if err := db.Append(ctx, step.target, step.row); err != nil {
			t.Fatal(err)
		}
	}

	subs, err := db.ListSubmissions(a, 10)
	if err != nil {
		t.Fatal(err)
	}
	got := [][]string{}
	for _, s := range subs {
		got = append(got, s.Values)
	}
	if diff := cmp.Diff([][]string{{"1", "Maria"}, {"3", "Ana"}}, got); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}
