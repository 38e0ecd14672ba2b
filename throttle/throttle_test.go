package throttle_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamwoolhether/mimic/request"
	"github.com/adamwoolhether/mimic/throttle"
	"github.com/adamwoolhether/mimic/transport"
)

// countingTransport records Perform calls and finishes each handle.
type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) Perform(ctx context.Context, h *request.Handle) error {
	c.calls.Add(1)
	if err := h.Start(func() {}); err != nil {
		return err
	}
	h.Finish(&request.Result{Status: 200, Proto: "HTTP/1.1"}, nil)
	return nil
}

func noLogger() *slog.Logger { return nil }

func newHandle(t *testing.T) *request.Handle {
	t.Helper()

	h, err := request.New(request.WithURL("http://upstream.test/"))
	if err != nil {
		t.Fatalf("creating handle: %v", err)
	}
	return h
}

func TestNewTransport_Validation(t *testing.T) {
	next := &countingTransport{}

	tests := []struct {
		name  string
		rps   int
		burst int
		next  transport.Interface
	}{
		{name: "zero rps", rps: 0, burst: 1, next: next},
		{name: "zero burst", rps: 1, burst: 0, next: next},
		{name: "negative rps", rps: -1, burst: 1, next: next},
		{name: "nil next", rps: 1, burst: 1, next: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := throttle.NewTransport(tc.rps, tc.burst, noLogger, tc.next); err == nil {
				t.Error("exp err; got nil")
			}
		})
	}
}

func TestThrottle_DelaysBeyondBurst(t *testing.T) {
	next := &countingTransport{}
	tr, err := throttle.NewTransport(10, 1, noLogger, next)
	if err != nil {
		t.Fatalf("creating throttle: %v", err)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		h := newHandle(t)
		if err := tr.Perform(context.Background(), h); err != nil {
			t.Fatalf("perform %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if got := next.calls.Load(); got != 3 {
		t.Errorf("exp 3 downstream performs; got %d", got)
	}
	// Burst covers the first transfer; the next two each wait for a
	// 100ms token.
	if elapsed < 150*time.Millisecond {
		t.Errorf("3 transfers at 10 rps took %v; exp at least 150ms", elapsed)
	}
}

func TestThrottle_WaitCancelled(t *testing.T) {
	next := &countingTransport{}
	tr, err := throttle.NewTransport(1, 1, noLogger, next)
	if err != nil {
		t.Fatalf("creating throttle: %v", err)
	}

	// Drain the burst token.
	if err := tr.Perform(context.Background(), newHandle(t)); err != nil {
		t.Fatalf("first perform: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := tr.Perform(ctx, newHandle(t)); !errors.Is(err, throttle.ErrWaitingFailed) {
		t.Fatalf("exp ErrWaitingFailed; got: %v", err)
	}
	if got := next.calls.Load(); got != 1 {
		t.Errorf("exp 1 downstream perform; got %d", got)
	}
}

func TestThrottle_ContextAlreadyEnded(t *testing.T) {
	tr, err := throttle.NewTransport(1, 1, noLogger, &countingTransport{})
	if err != nil {
		t.Fatalf("creating throttle: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tr.Perform(ctx, newHandle(t)); !errors.Is(err, throttle.ErrContextEnded) {
		t.Fatalf("exp ErrContextEnded; got: %v", err)
	}
}
