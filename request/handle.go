package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a Handle's position in its lifecycle.
type State int

const (
	Idle State = iota
	Configuring
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configuring:
		return "configuring"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Version is an HTTP protocol version a handle may request or a
// profile may cap.
type Version int

const (
	Version1_1 Version = iota + 1
	Version2
)

func (v Version) String() string {
	switch v {
	case Version1_1:
		return "HTTP/1.1"
	case Version2:
		return "HTTP/2"
	default:
		return fmt.Sprintf("version(%d)", int(v))
	}
}

// alpnToken is the ALPN protocol id a version negotiates under.
func (v Version) alpnToken() string {
	if v == Version2 {
		return "h2"
	}
	return "http/1.1"
}

// TLSParams is the fingerprint-relevant portion of a ClientHello:
// cipher and extension identifiers in presentation order, supported
// groups, and whether session tickets are offered.
type TLSParams struct {
	Ciphers        []string
	Extensions     []string
	Curves         []string
	SessionTickets bool
}

func (p TLSParams) clone() TLSParams {
	return TLSParams{
		Ciphers:        slices.Clone(p.Ciphers),
		Extensions:     slices.Clone(p.Extensions),
		Curves:         slices.Clone(p.Curves),
		SessionTickets: p.SessionTickets,
	}
}

// Profile is the read side of an impersonation profile. The concrete
// type lives in the profile package; Handle only ever copies values
// out through this interface, never retains the profile itself.
type Profile interface {
	ProfileName() string
	ALPNList() []string
	HeaderTemplate() Headers
	MaxVersion() Version
	TLS() TLSParams
}

// profileSnapshot is the value copy taken at ApplyProfile time.
type profileSnapshot struct {
	name       string
	alpn       []string
	headers    Headers
	maxVersion Version
	tls        TLSParams
}

// Result holds the outcome of a completed transfer. Response bytes
// live in the handle's ByteSink, not here.
type Result struct {
	Status int
	Proto  string
	Header Headers
}

// Handle is an addressable, reusable unit of request configuration and
// execution state. It is owned exclusively by the caller; the loop
// holds a non-owning registration while the handle is Running.
//
// All state transitions are guarded by an internal mutex so Cancel is
// safe to call from a different goroutine than the one driving the
// transfer.
type Handle struct {
	id uuid.UUID

	mu        sync.Mutex
	state     State
	method    string
	target    *url.URL
	headers   Headers
	timeout   time.Duration
	version   Version
	bodyBytes []byte
	bodyRdr   io.Reader
	bodyLen   int64
	bodyCT    string
	prof      *profileSnapshot

	sink   *ByteSink
	result *Result
	err    error

	cancelled bool
	cancelFn  context.CancelFunc
}

const defaultSinkCapacity = 4 << 10

// New creates a Handle and applies the given options. With no options
// the handle is Idle; any configuration moves it to Configuring.
func New(opts ...Option) (*Handle, error) {
	h := &Handle{
		id:      uuid.New(),
		state:   Idle,
		bodyLen: -1,
		sink:    NewByteSink(defaultSinkCapacity),
	}

	if len(opts) > 0 {
		if err := h.Configure(opts...); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// ID returns the handle's opaque identity.
func (h *Handle) ID() uuid.UUID { return h.id }

// State returns the handle's current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Configure applies options and validates them as a set. Conflicting
// options fail with an error wrapping [ErrInvalidOption] and leave the
// handle unmodified. Valid only while Idle or Configuring.
func (h *Handle) Configure(opts ...Option) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Idle && h.state != Configuring {
		return configErr("configure", h.state)
	}

	staged := h.stagedLocked()
	for _, opt := range opts {
		if err := opt(&staged); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
	}

	if err := staged.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}

	h.commitLocked(staged)
	h.state = Configuring

	return nil
}

// ApplyProfile copies p's fields into the handle's pending
// configuration. The copy is by value: later mutation of the profile
// source never affects a handle that already applied it. Fails with
// [ErrProfileIncompatible] when the handle's requested HTTP version is
// absent from the profile's ALPN list.
func (h *Handle) ApplyProfile(p Profile) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Idle && h.state != Configuring {
		return configErr("apply profile", h.state)
	}

	alpn := slices.Clone(p.ALPNList())
	if h.version != 0 && !slices.Contains(alpn, h.version.alpnToken()) {
		return fmt.Errorf("%w: handle wants %s, profile %q offers %v",
			ErrProfileIncompatible, h.version, p.ProfileName(), alpn)
	}

	h.prof = &profileSnapshot{
		name:       p.ProfileName(),
		alpn:       alpn,
		headers:    p.HeaderTemplate().Clone(),
		maxVersion: p.MaxVersion(),
		tls:        p.TLS().clone(),
	}
	h.state = Configuring

	return nil
}

// configErr reports why a configuration attempt is rejected: a running
// handle is busy, a finished one needs Reset first.
func configErr(op string, s State) error {
	err := ErrHandleRunning
	if s == Completed || s == Failed {
		err = ErrNeedsReset
	}
	return &StateError{Op: op, State: s, Err: err}
}

// Reset returns a finished (or never-started) handle to Idle. The sink
// is truncated to length 0 with capacity kept, and the configuration
// and profile snapshot are preserved; this is the reuse contract that
// replaces repeated allocation. Fails while Running.
func (h *Handle) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == Running {
		return &StateError{Op: "reset", State: h.state, Err: ErrHandleRunning}
	}

	h.state = Idle
	h.sink.Reset()
	h.result = nil
	h.err = nil
	h.cancelled = false
	h.cancelFn = nil

	return nil
}

// Cancel requests cooperative cancellation of the in-flight transfer.
// Valid only while Running. The driver observes the flag at its next
// step boundary and finishes the handle as Failed with [ErrCancelled],
// so cancellation latency is bounded by one I/O step.
func (h *Handle) Cancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Running {
		return &StateError{Op: "cancel", State: h.state, Err: ErrNotRunning}
	}

	h.cancelled = true
	if h.cancelFn != nil {
		h.cancelFn()
	}

	return nil
}

// Cancelled reports whether Cancel has been requested for the current
// transfer.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// Start is the driver entry point: it moves the handle to Running and
// records the cancel func Cancel will fire. It fails with
// [ErrHandleRunning] while a transfer is in flight (the loop reports
// this as a duplicate registration) and with [ErrNeedsReset] when a
// finished handle is resubmitted without Reset.
func (h *Handle) Start(cancel context.CancelFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case Running:
		return &StateError{Op: "start", State: h.state, Err: ErrHandleRunning}
	case Completed, Failed:
		return &StateError{Op: "start", State: h.state, Err: ErrNeedsReset}
	}

	h.state = Running
	h.cancelFn = cancel

	return nil
}

// Finish is the driver exit point: it records the outcome and moves
// the handle to Completed or Failed. A cancelled transfer always
// finishes as Failed with [ErrCancelled], whatever error the driver
// observed at the step boundary.
func (h *Handle) Finish(res *Result, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Running {
		return
	}

	if h.cancelled {
		err = ErrCancelled
		res = nil
	}

	h.cancelFn = nil
	if err != nil {
		h.state = Failed
		h.err = err
		return
	}

	h.state = Completed
	h.result = res
}

// Result returns the completed transfer's result, or the failure
// error, or [ErrNoResult] when the handle has not finished.
func (h *Handle) Result() (*Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case Completed:
		return h.result, nil
	case Failed:
		return nil, h.err
	default:
		return nil, &StateError{Op: "result", State: h.state, Err: ErrNoResult}
	}
}

// Sink returns the handle's response buffer.
func (h *Handle) Sink() *ByteSink { return h.sink }

// Method returns the configured method, defaulting to GET.
func (h *Handle) Method() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.method == "" {
		return http.MethodGet
	}
	return h.method
}

// Target returns the configured target URL, or nil.
func (h *Handle) Target() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.target
}

// Timeout returns the per-transfer deadline, zero meaning none.
func (h *Handle) Timeout() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timeout
}

// ProfileName returns the applied profile's name, or "" when no
// profile has been applied.
func (h *Handle) ProfileName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.prof == nil {
		return ""
	}
	return h.prof.name
}

// ALPNOffer returns the ALPN protocols the transfer should advertise,
// from the profile snapshot, or nil without a profile.
func (h *Handle) ALPNOffer() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.prof == nil {
		return nil
	}
	return slices.Clone(h.prof.alpn)
}

// TLSSettings returns the profile snapshot's TLS parameters and
// whether a profile has been applied.
func (h *Handle) TLSSettings() (TLSParams, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.prof == nil {
		return TLSParams{}, false
	}
	return h.prof.tls.clone(), true
}

// SendHeaders returns the wire header list: the profile template in
// template order and casing, minus any name the caller overrode, then
// the caller's headers in insertion order. Duplicates the caller added
// deliberately are preserved.
func (h *Handle) SendHeaders() Headers {
	h.mu.Lock()
	defer h.mu.Unlock()

	var merged Headers
	if h.prof != nil {
		for _, tmpl := range h.prof.headers {
			if h.headers.Has(tmpl.Name) {
				continue
			}
			merged = append(merged, tmpl)
		}
	}
	merged = append(merged, h.headers...)

	return merged
}

// Body returns a reader over the configured body source along with its
// length (-1 when unknown) and content type. An in-memory body yields
// a fresh reader on every call, so a reset handle can resend it; a
// streaming source is returned as-is and is the caller's concern to
// rewind.
func (h *Handle) Body() (io.Reader, int64, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.bodyBytes != nil:
		return bytes.NewReader(h.bodyBytes), int64(len(h.bodyBytes)), h.bodyCT
	case h.bodyRdr != nil:
		return h.bodyRdr, h.bodyLen, h.bodyCT
	default:
		return nil, 0, ""
	}
}
