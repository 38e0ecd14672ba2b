package transport

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const defaultMaxIdlePerKey = 2

// Option defines optional settings for an Exchange.
//
// WithResolver swaps the DNS resolver.
// WithDialTimeout bounds TCP connect attempts.
// WithTLSClientConfig supplies a base tls.Config the profile shaping
// is layered onto (useful for custom roots in tests).
// WithMaxIdlePerKey caps pooled idle connections per (host, port,
// profile) slot.
// WithLogger injects a custom logger.
// WithTracer enables tracing of each perform.
type Option func(*options) error

type options struct {
	resolver      Resolver
	dialTimeout   *time.Duration
	tlsBase       *tls.Config
	maxIdlePerKey *int
	logger        *slog.Logger
	tracer        trace.Tracer
}

func WithResolver(r Resolver) Option {
	return func(o *options) error {
		if r == nil {
			return errors.New("resolver must not be nil")
		}
		o.resolver = r
		return nil
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("dial timeout must be positive")
		}
		o.dialTimeout = &d
		return nil
	}
}

func WithTLSClientConfig(cfg *tls.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("tls config must not be nil")
		}
		o.tlsBase = cfg
		return nil
	}
}

func WithMaxIdlePerKey(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return errors.New("max idle must not be negative")
		}
		o.maxIdlePerKey = &n
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		o.tracer = tracer
		return nil
	}
}
