// Package e2e runs the full engine flow against a local HTTP server:
// profile loading, fingerprint application, the synchronous path, the
// event loop, rate limiting, and multipart uploads.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adamwoolhether/mimic"
	"github.com/adamwoolhether/mimic/loop"
	"github.com/adamwoolhether/mimic/mimepart"
	"github.com/adamwoolhether/mimic/profile"
	"github.com/adamwoolhether/mimic/request"
	"github.com/adamwoolhether/mimic/throttle"
	"github.com/adamwoolhether/mimic/transport"
)

// loadedProfile loads a plaintext-capable profile the way a config
// front end would, through the registry's untyped records.
func loadedProfile(t *testing.T) *profile.Profile {
	t.Helper()

	reg := profile.NewRegistry()
	err := reg.Load([]map[string]any{{
		"name": "crawler",
		"tls": map[string]any{
			"ciphers":    []any{"TLS_AES_128_GCM_SHA256", "TLS_CHACHA20_POLY1305_SHA256"},
			"extensions": []any{"server_name", "application_layer_protocol_negotiation"},
		},
		"headers": []any{
			map[string]any{"name": "User-Agent", "value": "crawler/2.1"},
			map[string]any{"name": "Accept", "value": "*/*"},
		},
		"alpn":        []any{"http/1.1"},
		"max_version": 1,
	}})
	if err != nil {
		t.Fatalf("loading profiles: %v", err)
	}

	p, err := reg.Get("crawler")
	if err != nil {
		t.Fatalf("getting profile: %v", err)
	}
	return p
}

func TestSynchronousFlow(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "payload")
	}))
	defer srv.Close()

	h, err := mimic.NewHandle(
		request.WithURL(srv.URL+"/fetch"),
		request.WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("creating handle: %v", err)
	}
	if err := h.ApplyProfile(loadedProfile(t)); err != nil {
		t.Fatalf("applying profile: %v", err)
	}

	e, err := mimic.NewExchange(transport.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("creating exchange: %v", err)
	}
	defer e.Close()

	if err := e.Perform(context.Background(), h); err != nil {
		t.Fatalf("performing: %v", err)
	}

	res, err := h.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Status != http.StatusOK {
		t.Errorf("exp status 200; got %d", res.Status)
	}
	if got := h.Sink().String(); got != "payload" {
		t.Errorf("exp body %q; got %q", "payload", got)
	}
	if got := gotUA.Load(); got != "crawler/2.1" {
		t.Errorf("exp profile user agent on the wire; got %v", got)
	}

	// The same handle goes around again after Reset.
	if err := h.Reset(); err != nil {
		t.Fatalf("resetting: %v", err)
	}
	if err := e.Perform(context.Background(), h); err != nil {
		t.Fatalf("second perform: %v", err)
	}
	if got := h.Sink().String(); got != "payload" {
		t.Errorf("exp fresh body after reset; got %q", got)
	}
}

func TestEventLoopFlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "resource %s", strings.TrimPrefix(r.URL.Path, "/"))
	}))
	defer srv.Close()

	l, err := mimic.NewLoop(
		loop.WithMaxConcurrent(4),
		loop.WithLogger(slog.New(slog.DiscardHandler)),
	)
	if err != nil {
		t.Fatalf("creating loop: %v", err)
	}
	defer l.Close()

	const count = 8
	prof := loadedProfile(t)
	want := make(map[string]string, count)
	for i := 0; i < count; i++ {
		h, err := mimic.NewHandle(
			request.WithURL(fmt.Sprintf("%s/%d", srv.URL, i)),
			request.WithTimeout(5*time.Second),
		)
		if err != nil {
			t.Fatalf("creating handle %d: %v", i, err)
		}
		if err := h.ApplyProfile(prof); err != nil {
			t.Fatalf("applying profile: %v", err)
		}
		if err := l.Register(context.Background(), h); err != nil {
			t.Fatalf("registering handle %d: %v", i, err)
		}
		want[h.ID().String()] = fmt.Sprintf("resource %d", i)
	}

	deadline := time.Now().Add(10 * time.Second)
	done := 0
	for done < count && time.Now().Before(deadline) {
		for _, c := range l.Poll(250 * time.Millisecond) {
			done++
			if c.Err != nil {
				t.Errorf("handle %s failed: %v", c.ID, c.Err)
				continue
			}
			if got := c.Handle.Sink().String(); got != want[c.ID.String()] {
				t.Errorf("handle %s: exp body %q; got %q", c.ID, want[c.ID.String()], got)
			}
		}
	}
	if done != count {
		t.Fatalf("exp %d completions; got %d", count, done)
	}
	if got := l.Len(); got != 0 {
		t.Errorf("exp drained loop; got %d registered", got)
	}
}

func TestMultipartUploadFlow(t *testing.T) {
	type received struct {
		kind     string
		filename string
		content  string
	}
	recvCh := make(chan received, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, fh, err := r.FormFile("doc")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		content, _ := io.ReadAll(f)
		recvCh <- received{
			kind:     r.FormValue("kind"),
			filename: fh.Filename,
			content:  string(content),
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	b := mimepart.NewBuilder()
	if err := b.AddField("kind", "report"); err != nil {
		t.Fatalf("adding field: %v", err)
	}
	if err := b.AddFile("doc", "report.csv", "text/csv", strings.NewReader("a,b\n1,2\n")); err != nil {
		t.Fatalf("adding file: %v", err)
	}
	body, err := b.Build()
	if err != nil {
		t.Fatalf("building body: %v", err)
	}

	opts := append([]request.Option{
		request.WithURL(srv.URL + "/upload"),
		request.WithMethod("POST"),
		request.WithTimeout(5 * time.Second),
	}, mimic.MultipartBody(body)...)

	h, err := mimic.NewHandle(opts...)
	if err != nil {
		t.Fatalf("creating handle: %v", err)
	}

	e, err := mimic.NewExchange()
	if err != nil {
		t.Fatalf("creating exchange: %v", err)
	}
	defer e.Close()

	if err := e.Perform(context.Background(), h); err != nil {
		t.Fatalf("performing: %v", err)
	}
	res, err := h.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.Status != http.StatusCreated {
		t.Fatalf("exp status 201; got %d", res.Status)
	}

	got := <-recvCh
	if got.kind != "report" || got.filename != "report.csv" || got.content != "a,b\n1,2\n" {
		t.Errorf("server received %+v", got)
	}
}

func TestThrottledFlow(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	e, err := mimic.NewExchange()
	if err != nil {
		t.Fatalf("creating exchange: %v", err)
	}
	defer e.Close()

	tr, err := throttle.NewTransport(20, 1, func() *slog.Logger { return nil }, e)
	if err != nil {
		t.Fatalf("creating throttle: %v", err)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		h, err := mimic.NewHandle(request.WithURL(srv.URL), request.WithTimeout(5*time.Second))
		if err != nil {
			t.Fatalf("creating handle %d: %v", i, err)
		}
		if err := tr.Perform(context.Background(), h); err != nil {
			t.Fatalf("perform %d: %v", i, err)
		}
	}

	if got := hits.Load(); got != 3 {
		t.Errorf("exp 3 requests; got %d", got)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("3 transfers at 20 rps took %v; exp at least 100ms", elapsed)
	}
}

func TestLoopTimeoutSurfacesTaxonomyError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release) // unblock the handler before srv.Close waits on it

	l, err := mimic.NewLoop(loop.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("creating loop: %v", err)
	}
	defer l.Close()

	h, err := mimic.NewHandle(
		request.WithURL(srv.URL),
		request.WithTimeout(100*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("creating handle: %v", err)
	}
	if err := l.Register(context.Background(), h); err != nil {
		t.Fatalf("registering: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	var cs []loop.Completion
	for len(cs) == 0 && time.Now().Before(deadline) {
		cs = l.Poll(250 * time.Millisecond)
	}
	if len(cs) != 1 {
		t.Fatalf("exp 1 completion; got %d", len(cs))
	}
	if !errors.Is(cs[0].Err, transport.ErrTimeout) {
		t.Errorf("exp ErrTimeout; got: %v", cs[0].Err)
	}
}
