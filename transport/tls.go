package transport

import (
	"crypto/tls"
	"slices"

	"github.com/adamwoolhether/mimic/request"
)

// cipherIDs maps profile cipher names to crypto/tls identifiers.
// TLS 1.3 suites are not configurable in crypto/tls and are listed
// only so profiles naming them do not produce an empty preference
// list; unknown names are skipped.
var cipherIDs = map[string]uint16{
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256":       tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384":       tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":         tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":         tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256": tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256":   tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

var curveIDs = map[string]tls.CurveID{
	"X25519": tls.X25519,
	"P-256":  tls.CurveP256,
	"P-384":  tls.CurveP384,
	"P-521":  tls.CurveP521,
}

// tlsConfigFor shapes a tls.Config from the handle's profile snapshot.
// The built-in exchange speaks HTTP/1.1 only, so h2 is filtered out of
// the advertised ALPN even when the profile fingerprint carries it.
func (e *Exchange) tlsConfigFor(h *request.Handle, serverName string) *tls.Config {
	var cfg *tls.Config
	if e.tlsBase != nil {
		cfg = e.tlsBase.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}

	alpn := h.ALPNOffer()
	if len(alpn) > 0 {
		offer := slices.DeleteFunc(slices.Clone(alpn), func(p string) bool { return p == "h2" })
		if len(offer) > 0 {
			cfg.NextProtos = offer
		}
	}

	params, ok := h.TLSSettings()
	if !ok {
		return cfg
	}

	var suites []uint16
	for _, name := range params.Ciphers {
		if id, ok := cipherIDs[name]; ok {
			suites = append(suites, id)
		}
	}
	if len(suites) > 0 {
		cfg.CipherSuites = suites
	}

	var curves []tls.CurveID
	for _, name := range params.Curves {
		if id, ok := curveIDs[name]; ok {
			curves = append(curves, id)
		}
	}
	if len(curves) > 0 {
		cfg.CurvePreferences = curves
	}

	cfg.SessionTicketsDisabled = !params.SessionTickets

	return cfg
}
