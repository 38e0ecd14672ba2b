package transport

import "errors"

var (
	// ErrResolutionFailed marks a DNS lookup failure.
	ErrResolutionFailed = errors.New("resolution failed")

	// ErrConnectFailed marks a TCP connect failure.
	ErrConnectFailed = errors.New("connect failed")

	// ErrTLSHandshakeFailed marks a TLS handshake failure.
	ErrTLSHandshakeFailed = errors.New("tls handshake failed")

	// ErrTimeout marks a transfer that exceeded the handle's deadline.
	ErrTimeout = errors.New("transfer timed out")

	// ErrTransferAborted marks a peer reset or truncation mid-stream.
	ErrTransferAborted = errors.New("transfer aborted")

	// ErrProtocolViolation marks a malformed status line or header.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrNoTarget is returned for a handle without a target URL.
	ErrNoTarget = errors.New("handle has no target url")
)
