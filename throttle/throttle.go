package throttle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/adamwoolhether/mimic/request"
	"github.com/adamwoolhether/mimic/transport"
)

// throttle is a transport.Interface, using the time/rate token
// bucket limiter to restrict outbound transfers.
type throttle struct {
	limiter *rate.Limiter
	rps     int
	burst   int
	next    transport.Interface
	logFn   func() *slog.Logger
}

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// NewTransport returns a transport.Interface that throttles outbound
// transfers using a token bucket rate limiter. logFn lazily resolves
// the logger at perform time, making option ordering irrelevant. A
// nil-returning logFn skips the calls to *Limiter.Allow().
func NewTransport(rps, burst int, logFn func() *slog.Logger, next transport.Interface) (transport.Interface, error) {
	if rps <= 0 || burst <= 0 {
		return nil, fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
	}
	if next == nil {
		return nil, errors.New("next transport must not be nil")
	}

	t := &throttle{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		burst:   burst,
		next:    next,
		logFn:   logFn,
	}

	return t, nil
}

func (t *throttle) Perform(ctx context.Context, h *request.Handle) error {
	if t.limiter == nil {
		return t.next.Perform(ctx, h)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	var waited time.Duration
	logger := t.logFn()
	if logger != nil && !t.limiter.Allow() {
		logger.Info("throttle tokens exhausted", "rate", t.rps, "burst", t.burst, "handle", h.ID())

		defer func() {
			logger.Info("throttle wait complete", "waited", waited.String(), "rate", t.rps, "burst", t.burst)
		}()
	}

	start := time.Now()

	err := t.limiter.Wait(ctx)
	waited = time.Since(start)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if err := ctx.Err(); err != nil { // Check context hasn't expired again.
		return fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.Perform(ctx, h)
}
