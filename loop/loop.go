package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adamwoolhether/mimic/request"
	"github.com/adamwoolhether/mimic/transport"
)

var (
	// ErrAlreadyRegistered is returned by Register for a handle that
	// is already running under this or another driver. The original
	// registration remains intact.
	ErrAlreadyRegistered = errors.New("handle already registered")

	// ErrNotRegistered is returned by Remove for an unknown handle.
	ErrNotRegistered = errors.New("handle not registered")

	// ErrLoopClosed is returned by Register after Close.
	ErrLoopClosed = errors.New("loop is closed")
)

// Completion reports one finished transfer. Result is nil when the
// transfer failed; the response bytes are in the handle's ByteSink.
type Completion struct {
	ID     uuid.UUID
	Handle *request.Handle
	Result *request.Result
	Err    error
}

// registration is the loop's non-owning record of a running handle.
type registration struct {
	handle *request.Handle
	cancel context.CancelFunc
}

// Loop drives registered handles concurrently and queues their
// completions in finish order for Poll to drain exactly once each.
type Loop struct {
	driver transport.Driver
	logger *slog.Logger
	sem    chan struct{}

	mu     sync.Mutex
	regs   map[uuid.UUID]*registration
	queue  []Completion
	closed bool

	notify chan struct{}
	wg     sync.WaitGroup
}

// New creates a Loop with the given options. Without WithDriver a
// default transport Exchange is used.
func New(optFns ...Option) (*Loop, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying loop option: %w", err)
		}
	}

	l := &Loop{
		driver: opts.driver,
		logger: opts.logger,
		regs:   make(map[uuid.UUID]*registration),
		notify: make(chan struct{}, 1),
	}

	if l.driver == nil {
		ex, err := transport.NewExchange()
		if err != nil {
			return nil, fmt.Errorf("building default exchange: %w", err)
		}
		l.driver = ex
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if opts.maxConcurrent > 0 {
		l.sem = make(chan struct{}, opts.maxConcurrent)
	}

	return l, nil
}

// Register moves h to Running and begins driving it. The handle's
// timeout runs from this moment, whether or not a worker slot is free
// yet. Registering a handle that is already running fails with
// [ErrAlreadyRegistered] and leaves the original registration intact.
func (l *Loop) Register(ctx context.Context, h *request.Handle) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	if _, ok := l.regs[h.ID()]; ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, h.ID())
	}

	ctx, cancel := context.WithCancel(ctx)
	if t := h.Timeout(); t > 0 {
		// The deadline is installed here so a handle waiting for a
		// worker slot, or receiving no data, still times out.
		ctx, cancel = deadlineFrom(ctx, cancel, time.Now().Add(t))
	}

	if err := h.Start(cancel); err != nil {
		cancel()
		l.mu.Unlock()
		if errors.Is(err, request.ErrHandleRunning) {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, h.ID())
		}
		return err
	}

	l.regs[h.ID()] = &registration{handle: h, cancel: cancel}
	l.mu.Unlock()

	l.wg.Add(1)
	go l.run(ctx, h, cancel)

	return nil
}

// run drives one handle to completion on a worker goroutine.
func (l *Loop) run(ctx context.Context, h *request.Handle, cancel context.CancelFunc) {
	defer l.wg.Done()
	defer cancel()

	if l.sem != nil {
		select {
		case l.sem <- struct{}{}:
			defer func() { <-l.sem }()
		case <-ctx.Done():
			// Fall through: Drive fails fast with timeout or
			// cancellation and records it on the handle.
		}
	}

	err := l.driver.Drive(ctx, h)
	res, _ := h.Result()

	if !l.take(h.ID()) {
		// Removed while in flight; the remover already owns the
		// handle's fate, so no completion is queued.
		return
	}

	l.push(Completion{ID: h.ID(), Handle: h, Result: res, Err: err})
}

// take removes the registration record, reporting whether it was
// still present.
func (l *Loop) take(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.regs[id]; !ok {
		return false
	}
	delete(l.regs, id)

	return true
}

func (l *Loop) push(c Completion) {
	l.mu.Lock()
	l.queue = append(l.queue, c)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// drainQueue pops all queued completions in finish order.
func (l *Loop) drainQueue() []Completion {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil
	}
	out := l.queue
	l.queue = nil

	return out
}

// Poll returns finished transfers, waiting up to maxWait for the
// first one. It never blocks longer than maxWait and returns nil on a
// quiet window. Each completion is returned exactly once.
func (l *Loop) Poll(maxWait time.Duration) []Completion {
	if cs := l.drainQueue(); len(cs) > 0 {
		return cs
	}
	if maxWait <= 0 {
		return nil
	}

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	for {
		select {
		case <-l.notify:
			if cs := l.drainQueue(); len(cs) > 0 {
				return cs
			}
		case <-timer.C:
			return l.drainQueue()
		}
	}
}

// Remove deregisters h without waiting for completion: the in-flight
// worker is cancelled and no completion is queued for it. The handle
// itself finishes as Failed with the cancellation error.
func (l *Loop) Remove(h *request.Handle) error {
	l.mu.Lock()
	reg, ok := l.regs[h.ID()]
	if ok {
		delete(l.regs, h.ID())
	}
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, h.ID())
	}

	reg.cancel()
	l.logger.Debug("handle removed", "handle", h.ID())

	return nil
}

// Len returns the number of currently registered handles.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.regs)
}

// Close cancels all registered handles, waits for their workers, and
// rejects further registrations. Undrained completions are discarded.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	for _, reg := range l.regs {
		reg.cancel()
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.drainQueue()
}

// deadlineFrom layers a deadline onto ctx, folding both cancel funcs
// into one.
func deadlineFrom(ctx context.Context, cancel context.CancelFunc, dl time.Time) (context.Context, context.CancelFunc) {
	dctx, dcancel := context.WithDeadline(ctx, dl)
	return dctx, func() {
		dcancel()
		cancel()
	}
}
