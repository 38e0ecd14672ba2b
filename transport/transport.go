package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/mimic/request"
)

// Interface is the synchronous transport boundary. Perform runs a
// configured handle to completion, timeout, or cancellation. It exists
// so the transport can be swapped, mocked, or wrapped (see throttle).
type Interface interface {
	Perform(ctx context.Context, h *request.Handle) error
}

// Driver is the event-loop boundary: Drive runs the exchange for a
// handle the loop already moved to Running.
type Driver interface {
	Drive(ctx context.Context, h *request.Handle) error
}

// Resolver resolves hostnames. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Exchange is the built-in HTTP/1.1 transport. It implements both
// [Interface] and [Driver].
type Exchange struct {
	resolver Resolver
	dialer   *net.Dialer
	tlsBase  *tls.Config
	pool     *connPool
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewExchange builds an Exchange with the provided options.
func NewExchange(optFns ...Option) (*Exchange, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying transport option: %w", err)
		}
	}

	e := &Exchange{
		resolver: net.DefaultResolver,
		dialer:   &net.Dialer{Timeout: 5 * time.Second},
		pool:     newConnPool(defaultMaxIdlePerKey),
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("no-op tracer"),
	}

	if opts.resolver != nil {
		e.resolver = opts.resolver
	}
	if opts.dialTimeout != nil {
		e.dialer.Timeout = *opts.dialTimeout
	}
	if opts.tlsBase != nil {
		e.tlsBase = opts.tlsBase
	}
	if opts.maxIdlePerKey != nil {
		e.pool = newConnPool(*opts.maxIdlePerKey)
	}
	if opts.logger != nil {
		e.logger = opts.logger
	}
	if opts.tracer != nil {
		e.tracer = opts.tracer
	}

	return e, nil
}

// Perform runs h synchronously. It moves the handle to Running,
// performs the exchange, records the outcome on the handle, and
// returns the transfer error, if any. The response body is in the
// handle's ByteSink.
func (e *Exchange) Perform(ctx context.Context, h *request.Handle) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := h.Start(cancel); err != nil {
		return err
	}

	return e.Drive(ctx, h)
}

// Drive performs the exchange for an already-Running handle. The loop
// uses it after registering its own cancel func via Handle.Start.
func (e *Exchange) Drive(ctx context.Context, h *request.Handle) error {
	if t := h.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	target := h.Target()
	urlAttr := ""
	if target != nil {
		urlAttr = target.Redacted()
	}
	ctx, span := e.tracer.Start(ctx, "transport.perform", trace.WithAttributes(
		attribute.String("http.method", h.Method()),
		attribute.String("url.full", urlAttr),
		attribute.String("mimic.profile", h.ProfileName()),
	))
	defer span.End()

	res, err := e.exchange(ctx, h)
	err = e.classify(ctx, h, err)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug("transfer failed", "handle", h.ID(), "url", urlAttr, "error", err)
	} else {
		span.SetAttributes(attribute.Int("http.status_code", res.Status))
		e.logger.Debug("transfer complete", "handle", h.ID(), "url", urlAttr,
			"status", res.Status, "bytes", h.Sink().Len())
	}

	h.Finish(res, err)
	if h.Cancelled() {
		err = request.ErrCancelled
	}

	return err
}

// Close releases all idle pooled connections.
func (e *Exchange) Close() {
	e.pool.closeAll()
}

// classify maps low-level failures onto the transport taxonomy. The
// order matters: a cancelled transfer reports cancellation even when
// the wire error it provoked looks like a timeout.
func (e *Exchange) classify(ctx context.Context, h *request.Handle, err error) error {
	if err == nil {
		return nil
	}
	if h.Cancelled() || errors.Is(err, request.ErrCancelled) {
		return request.ErrCancelled
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return request.ErrCancelled
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return err
}

// exchange resolves, connects (or reuses a pooled connection), and
// runs one HTTP/1.1 round trip.
func (e *Exchange) exchange(ctx context.Context, h *request.Handle) (*request.Result, error) {
	target := h.Target()
	if target == nil {
		return nil, ErrNoTarget
	}

	host, port, useTLS, err := endpoint(target)
	if err != nil {
		return nil, err
	}

	key := poolKey{host: host, port: port, profile: h.ProfileName()}

	conn := e.pool.get(key)
	reused := conn != nil
	if conn == nil {
		conn, err = e.connect(ctx, h, host, port, useTLS)
		if err != nil {
			return nil, err
		}
	}

	res, reusable, err := e.roundTrip(ctx, h, conn, target)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if reusable {
		e.pool.put(key, conn)
	} else {
		conn.Close()
	}

	e.logger.Debug("round trip", "handle", h.ID(), "host", host, "reused", reused, "pooled", reusable)

	return res, nil
}

// connect establishes a fresh connection: resolve, dial, and for
// https targets a TLS handshake shaped by the profile snapshot.
func (e *Exchange) connect(ctx context.Context, h *request.Handle, host, port string, useTLS bool) (net.Conn, error) {
	addrs := []string{host}
	if net.ParseIP(host) == nil {
		resolved, err := e.resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrResolutionFailed, host, err)
		}
		addrs = resolved
	}

	var conn net.Conn
	var dialErr error
	for _, addr := range addrs {
		conn, dialErr = e.dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
		if dialErr == nil {
			break
		}
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrConnectFailed, net.JoinHostPort(host, port), dialErr)
	}

	if !useTLS {
		return conn, nil
	}

	tlsConn := tls.Client(conn, e.tlsConfigFor(h, host))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrTLSHandshakeFailed, err)
	}

	return tlsConn, nil
}

// endpoint splits a target URL into host, port, and TLS mode.
func endpoint(target *url.URL) (host, port string, useTLS bool, err error) {
	host = target.Hostname()
	if host == "" {
		return "", "", false, fmt.Errorf("%w: missing host", ErrNoTarget)
	}

	switch target.Scheme {
	case "http", "ws":
		port = "80"
	case "https", "wss":
		port, useTLS = "443", true
	default:
		return "", "", false, fmt.Errorf("unsupported scheme %q", target.Scheme)
	}
	if p := target.Port(); p != "" {
		port = p
	}

	return host, port, useTLS, nil
}
