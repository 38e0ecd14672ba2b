// Package transport performs network I/O for request handles.
//
// [Interface] is the synchronous boundary: one call to Perform runs a
// configured handle to completion, timeout, or cancellation, streaming
// response bytes into the handle's ByteSink. [Exchange] is the built-in
// implementation: it resolves the target, establishes (or reuses) a
// TCP/TLS connection shaped by the handle's profile snapshot, writes
// the request with the handle's exact header order and casing, and
// parses an HTTP/1.1 response.
//
// Errors are reported precisely once and never retried here; retry
// policy belongs to the caller. Each failure class has a sentinel:
// [ErrResolutionFailed], [ErrConnectFailed], [ErrTLSHandshakeFailed],
// [ErrTimeout], [ErrTransferAborted], [ErrProtocolViolation].
//
// Perform may run on any number of goroutines in parallel; concurrent
// transfers share nothing but the read-only profile snapshots and the
// mutex-guarded connection pool.
package transport
