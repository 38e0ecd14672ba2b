// Package profile defines impersonation profiles: named, immutable
// bundles of TLS ClientHello parameters, ordered default headers, ALPN
// protocols and an HTTP version ceiling that a request Handle copies
// by value before execution.
//
// # Building
//
// [Build] validates internal consistency and returns an immutable
// profile:
//
//	p, err := profile.Build("chrome-like",
//		profile.Definition{
//			ALPN:       []string{"h2", "http/1.1"},
//			MaxVersion: request.Version2,
//			TLS: request.TLSParams{
//				Ciphers:    []string{"TLS_AES_128_GCM_SHA256"},
//				Extensions: []string{"server_name", "application_layer_protocol_negotiation"},
//			},
//		},
//	)
//
// Inconsistent definitions, such as ALPN advertising h2 without the
// ALPN TLS extension, fail with [*MalformedProfileError].
//
// # Registry
//
// [Registry] holds profiles by name and can load a batch of
// already-parsed definitions (e.g. decoded from a config file) via
// [Registry.Load]. Profiles are created at startup, shared read-only
// across any number of handles, and never mutated after registration,
// so concurrent reads need no locking on the profile itself.
package profile
