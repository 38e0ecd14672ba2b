package loop

import (
	"errors"
	"log/slog"

	"github.com/adamwoolhether/mimic/transport"
)

// Option defines optional settings for a Loop.
//
// WithDriver swaps the transport driving registered handles.
// WithMaxConcurrent caps in-flight transfers; further registrations
// queue for a worker slot while their timeout keeps running.
// WithLogger injects a custom logger.
type Option func(*options) error

type options struct {
	driver        transport.Driver
	maxConcurrent int
	logger        *slog.Logger
}

func WithDriver(d transport.Driver) Option {
	return func(o *options) error {
		if d == nil {
			return errors.New("driver must not be nil")
		}
		o.driver = d
		return nil
	}
}

func WithMaxConcurrent(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max concurrent must not be negative")
		}
		o.maxConcurrent = n
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
