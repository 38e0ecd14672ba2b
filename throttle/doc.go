// Package throttle provides a [transport.Interface] that rate-limits
// outbound transfers using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// # Usage
//
// Wrap an existing transport with [NewTransport]:
//
//	tr, err := throttle.NewTransport(
//		10,  // transfers per second
//		5,   // burst capacity
//		func() *slog.Logger { return slog.Default() },
//		exchange,
//	)
//
// When the rate limit is exceeded, transfers block until a token
// becomes available or the context is cancelled.
package throttle
