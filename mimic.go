// Package mimic exposes the engine's entry points.
//
// mimic is an HTTP transport engine with pluggable TLS/HTTP
// fingerprint impersonation. A [request.Handle] carries one request's
// configuration and state; a [profile.Profile] shapes how the wire
// presentation looks; the synchronous path runs through a
// [transport.Exchange], and the event-driven path multiplexes many
// handles through a [loop.Loop].
package mimic

import (
	"github.com/adamwoolhether/mimic/loop"
	"github.com/adamwoolhether/mimic/mimepart"
	"github.com/adamwoolhether/mimic/request"
	"github.com/adamwoolhether/mimic/transport"
)

// NewHandle instantiates a request handle with the provided options.
func NewHandle(opts ...request.Option) (*request.Handle, error) {
	return request.New(opts...)
}

// NewExchange instantiates the built-in synchronous transport.
func NewExchange(opts ...transport.Option) (*transport.Exchange, error) {
	return transport.NewExchange(opts...)
}

// NewLoop instantiates an event loop driving many handles at once.
func NewLoop(opts ...loop.Option) (*loop.Loop, error) {
	return loop.New(opts...)
}

// MultipartBody returns the handle options that attach a multipart
// body: the streaming source plus its Content-Type.
func MultipartBody(body *mimepart.Body) []request.Option {
	return []request.Option{
		request.WithBodyStream(body, -1),
		request.WithContentType(body.ContentType()),
	}
}
