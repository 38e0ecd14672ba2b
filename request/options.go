package request

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"
)

// Option configures a Handle. Options are staged and validated as a
// set by [Handle.Configure]; an option that fails, or a combination
// that conflicts, leaves the handle unmodified.
//
// WithURL and WithTarget set the request target.
// WithMethod sets the request method (default GET).
// WithHeader appends one ordered, case-preserved header.
// WithBodyBytes, WithBodyStream set the body source.
// WithContentLength pins an explicit body length.
// WithContentType sets the body's Content-Type.
// WithTimeout sets the per-transfer deadline.
// WithHTTPVersion requests a protocol version ceiling.
type Option func(*config) error

type config struct {
	method    string
	target    *url.URL
	headers   Headers
	timeout   time.Duration
	version   Version
	bodyBytes []byte
	bodyRdr   io.Reader
	bodyLen   int64
	bodyCT    string

	explicitLen *int64
}

func WithMethod(method string) Option {
	return func(c *config) error {
		if method == "" {
			return errors.New("method must not be empty")
		}
		c.method = method
		return nil
	}
}

func WithTarget(u *url.URL) Option {
	return func(c *config) error {
		if u == nil {
			return errors.New("target must not be nil")
		}
		c.target = u
		return nil
	}
}

func WithURL(raw string) Option {
	return func(c *config) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing target url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
		c.target = u
		return nil
	}
}

func WithHeader(name, value string) Option {
	return func(c *config) error {
		if name == "" {
			return errors.New("header name must not be empty")
		}
		c.headers.Add(name, value)
		return nil
	}
}

func WithBodyBytes(body []byte) Option {
	return func(c *config) error {
		if c.bodyRdr != nil {
			return errors.New("body already set from a stream")
		}
		c.bodyBytes = body
		return nil
	}
}

// WithBodyStream sets a streaming body source. contentLength may be -1
// when unknown; the transport then sends the body chunked.
func WithBodyStream(r io.Reader, contentLength int64) Option {
	return func(c *config) error {
		if r == nil {
			return errors.New("body stream must not be nil")
		}
		if c.bodyBytes != nil {
			return errors.New("body already set from bytes")
		}
		c.bodyRdr = r
		c.bodyLen = contentLength
		return nil
	}
}

func WithContentLength(n int64) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.New("content length must not be negative")
		}
		c.explicitLen = &n
		return nil
	}
}

func WithContentType(contentType string) Option {
	return func(c *config) error {
		if contentType == "" {
			return errors.New("content type must not be empty")
		}
		c.bodyCT = contentType
		return nil
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = d
		return nil
	}
}

func WithHTTPVersion(v Version) Option {
	return func(c *config) error {
		if v != Version1_1 && v != Version2 {
			return fmt.Errorf("unknown http version %d", int(v))
		}
		c.version = v
		return nil
	}
}

// validate checks the staged options as a set.
func (c *config) validate() error {
	if c.bodyBytes != nil && c.bodyRdr != nil {
		return errors.New("conflicting body sources")
	}
	if c.explicitLen != nil {
		if c.bodyBytes != nil && int64(len(c.bodyBytes)) != *c.explicitLen {
			return fmt.Errorf("content length %d disagrees with %d-byte body",
				*c.explicitLen, len(c.bodyBytes))
		}
		if c.bodyRdr != nil {
			c.bodyLen = *c.explicitLen
		}
	}
	return nil
}

// stagedLocked snapshots the handle's current configuration so a
// failing Configure leaves it untouched. Caller holds h.mu.
func (h *Handle) stagedLocked() config {
	return config{
		method:    h.method,
		target:    h.target,
		headers:   h.headers.Clone(),
		timeout:   h.timeout,
		version:   h.version,
		bodyBytes: h.bodyBytes,
		bodyRdr:   h.bodyRdr,
		bodyLen:   h.bodyLen,
		bodyCT:    h.bodyCT,
	}
}

// commitLocked installs a validated configuration. Caller holds h.mu.
func (h *Handle) commitLocked(c config) {
	h.method = c.method
	h.target = c.target
	h.headers = c.headers
	h.timeout = c.timeout
	h.version = c.version
	h.bodyBytes = c.bodyBytes
	h.bodyRdr = c.bodyRdr
	h.bodyLen = c.bodyLen
	h.bodyCT = c.bodyCT
}
