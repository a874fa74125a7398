package extraction

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/username/mindfolio/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// fakeInner answers immediately unless the payload is "block", which parks
// the call until release is closed.
type fakeInner struct {
	calls   int64
	release chan struct{}
	err     error
}

func (f *fakeInner) ExtractTextLines(ctx context.Context, data []byte) ([]string, error) {
	atomic.AddInt64(&f.calls, 1)
	if string(data) == "block" && f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return []string{"line from " + string(data)}, nil
}

func TestWorkerPoolDispatch(t *testing.T) {
	inner := &fakeInner{}
	pool := NewWorkerPool(inner, 2)
	defer pool.Close()

	lines, err := pool.ExtractTextLines(context.Background(), []byte("doc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "line from doc" {
		t.Errorf("unexpected lines: %v", lines)
	}
	if atomic.LoadInt64(&inner.calls) != 1 {
		t.Errorf("inner extractor called %d times, want 1", inner.calls)
	}
}

func TestWorkerPoolPropagatesErrors(t *testing.T) {
	wantErr := errors.New("engine broken")
	pool := NewWorkerPool(&fakeInner{err: wantErr}, 1)
	defer pool.Close()

	_, err := pool.ExtractTextLines(context.Background(), []byte("doc"))
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestWorkerPoolClosedFallsBack(t *testing.T) {
	inner := &fakeInner{}
	pool := NewWorkerPool(inner, 1)
	pool.Close()
	// Give the worker a moment to observe the close.
	time.Sleep(10 * time.Millisecond)

	lines, err := pool.ExtractTextLines(context.Background(), []byte("doc"))
	if err != nil {
		t.Fatalf("closed pool should extract in-process, got error: %v", err)
	}
	if len(lines) != 1 {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestWorkerPoolSaturatedFallsBack(t *testing.T) {
	inner := &fakeInner{release: make(chan struct{})}
	pool := NewWorkerPool(inner, 1)
	defer pool.Close()
	defer close(inner.release)

	// Occupy the single worker and fill the one-slot queue.
	for i := 0; i < 2; i++ {
		go pool.ExtractTextLines(context.Background(), []byte("block"))
	}
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		lines, err := pool.ExtractTextLines(context.Background(), []byte("fast"))
		if err != nil || len(lines) != 1 {
			t.Errorf("in-process fallback failed: %v %v", lines, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("saturated pool did not fall back to in-process extraction")
	}
}

func TestWorkerPoolContextCancel(t *testing.T) {
	inner := &fakeInner{release: make(chan struct{})}
	pool := NewWorkerPool(inner, 1)
	defer pool.Close()
	defer close(inner.release)

	// Park the worker so the next job waits in the queue.
	go pool.ExtractTextLines(context.Background(), []byte("block"))
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := pool.ExtractTextLines(ctx, []byte("queued"))
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}
}
