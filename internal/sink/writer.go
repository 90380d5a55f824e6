package sink

import (
	"context"
	"fmt"
	"sync"
)

// Writer is the single writer in front of a Sink. Appends are serialized,
// the header is ensured before the first append to each target, and nothing
// is retried.
type Writer struct {
	mu      sync.Mutex
	sink    Sink
	limiter *RateLimiter
	headers map[string]bool
}

func NewWriter(s Sink, limiter *RateLimiter) *Writer {
	return &Writer{sink: s, limiter: limiter, headers: map[string]bool{}}
}

func (w *Writer) Write(ctx context.Context, target Target, header, row []string) error {
	if len(row) != len(header) {
		return fmt.Errorf("row has %d values, header has %d", len(row), len(header))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	key := target.String()
	if !w.headers[key] {
		if err := w.limiter.WaitTurn(ctx); err != nil {
			return err
		}
		if err := w.sink.EnsureHeader(ctx, target, header); err != nil {
			return fmt.Errorf("ensure header: %w", err)
		}
		w.headers[key] = true
	}

	if err := w.limiter.WaitTurn(ctx); err != nil {
		return err
	}
	if err := w.sink.Append(ctx, target, row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// Forget makes the next Write re-check the header of target, e.g. after the
// worksheet was cleared by hand.
func (w *Writer) Forget(target Target) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.headers, target.String())
}
