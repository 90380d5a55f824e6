package sink

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type memorySink struct {
	mu         sync.Mutex
	rows       map[string][][]string
	ensures    int
	appendErr  error
	appendCall int
}

func newMemorySink() *memorySink {
	return &memorySink{rows: map[string][][]string{}}
}

func (m *memorySink) EnsureHeader(ctx context.Context, target Target, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensures++
	if len(m.rows[target.String()]) == 0 {
		m.rows[target.String()] = append(m.rows[target.String()], header)
	}
	return nil
}

func (m *memorySink) Append(ctx context.Context, target Target, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendCall++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.rows[target.String()] = append(m.rows[target.String()], row)
	return nil
}

func TestWriterEnsuresHeaderOnce(t *testing.T) {
	mem := newMemorySink()
	w := NewWriter(mem, nil)
	target := Target{SpreadsheetID: "sheet"}
	header := []string{"timestamp", "nome_do_filiado"}

	for _, name := range []string{"Maria", "João"} {
		if err := w.Write(context.Background(), target, header, []string{"2024-01-01 10:00:00", name}); err != nil {
			t.Fatal(err)
		}
	}

	want := [][]string{header, {"2024-01-01 10:00:00", "Maria"}, {"2024-01-01 10:00:00", "João"}}
	if diff := cmp.Diff(want, mem.rows["sheet"]); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if mem.ensures != 1 {
		t.Fatalf("ensures=%d", mem.ensures)
	}

	w.Forget(target)
	if err := w.Write(context.Background(), target, header, []string{"x", "y"}); err != nil {
		t.Fatal(err)
	}
	if mem.ensures != 2 {
		t.Fatalf("ensures after forget=%d", mem.ensures)
	}
}

func TestWriterRejectsMismatchedRow(t *testing.T) {
	mem := newMemorySink()
	w := NewWriter(mem, nil)
	err := w.Write(context.Background(), Target{SpreadsheetID: "sheet"}, []string{"a", "b"}, []string{"only"})
	if err == nil {
		t.Fatal("expected length error")
	}
	if mem.appendCall != 0 || mem.ensures != 0 {
		t.Fatalf("sink touched: appends=%d ensures=%d", mem.appendCall, mem.ensures)
	}
}

func TestWriterDoesNotRetry(t *testing.T) {
	mem := newMemorySink()
	mem.appendErr = errors.New("quota exceeded")
	w := NewWriter(mem, nil)

	err := w.Write(context.Background(), Target{SpreadsheetID: "sheet"}, []string{"a"}, []string{"1"})
	if !errors.Is(err, mem.appendErr) {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("message lost: %v", err)
	}
	if mem.appendCall != 1 {
		t.Fatalf("append calls=%d", mem.appendCall)
	}
}

func TestWriterSerializesConcurrentWrites(t *testing.T) {
	mem := newMemorySink()
	w := NewWriter(mem, nil)
	target := Target{SpreadsheetID: "sheet"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Write(context.Background(), target, []string{"h"}, []string{"v"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := len(mem.rows["sheet"]); got != 21 {
		t.Fatalf("rows=%d", got)
	}
	if mem.ensures != 1 {
		t.Fatalf("ensures=%d", mem.ensures)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RateLimiter
	if err := nilLimiter.WaitTurn(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := NewRateLimiter(0).WaitTurn(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestRateLimiterStopsOnCancel(t *testing.T) {
	limiter := NewRateLimiter(1)
	if err := limiter.WaitTurn(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := limiter.WaitTurn(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("waited %v after cancel", elapsed)
	}
}

func TestWriterCancelledWhilePaced(t *testing.T) {
	mem := newMemorySink()
	w := NewWriter(mem, NewRateLimiter(1))
	target := Target{SpreadsheetID: "sheet"}

	if err := w.Write(context.Background(), target, []string{"h"}, []string{"v"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := w.Write(ctx, target, []string{"h"}, []string{"w"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v, want deadline exceeded", err)
	}
	if mem.appendCall != 1 {
		t.Fatalf("append calls=%d", mem.appendCall)
	}
}
