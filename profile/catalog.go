package profile

import "github.com/adamwoolhether/mimic/request"

// Built-in profiles. These are representative shapes for exercising
// the mechanism, not byte-accurate captures of any browser release;
// production catalogs should be loaded through [Registry.Load] from
// maintained reference data.

// ChromeLike mimics a Chromium-family client: h2-first ALPN and a
// GREASE-leading extension order.
func ChromeLike() *Profile {
	p, err := Build("chrome-like", Definition{
		TLS: request.TLSParams{
			Ciphers: []string{
				"TLS_AES_128_GCM_SHA256",
				"TLS_AES_256_GCM_SHA384",
				"TLS_CHACHA20_POLY1305_SHA256",
				"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
				"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256",
			},
			Extensions: []string{
				"grease",
				"server_name",
				"extended_master_secret",
				"supported_groups",
				"application_layer_protocol_negotiation",
				"signature_algorithms",
				"key_share",
			},
			Curves:         []string{"X25519", "P-256", "P-384"},
			SessionTickets: true,
		},
		Headers: []HeaderDef{
			{Name: "sec-ch-ua", Value: `"Chromium";v="120"`},
			{Name: "sec-ch-ua-mobile", Value: "?0"},
			{Name: "User-Agent", Value: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
			{Name: "Accept", Value: "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			{Name: "Accept-Language", Value: "en-US,en;q=0.9"},
		},
		ALPN:       []string{"h2", "http/1.1"},
		MaxVersion: request.Version2,
	})
	if err != nil {
		panic(err)
	}
	return p
}

// FirefoxLike mimics a Gecko-family client.
func FirefoxLike() *Profile {
	p, err := Build("firefox-like", Definition{
		TLS: request.TLSParams{
			Ciphers: []string{
				"TLS_AES_128_GCM_SHA256",
				"TLS_CHACHA20_POLY1305_SHA256",
				"TLS_AES_256_GCM_SHA384",
				"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256",
			},
			Extensions: []string{
				"server_name",
				"extended_master_secret",
				"supported_groups",
				"session_ticket",
				"application_layer_protocol_negotiation",
				"signature_algorithms",
				"key_share",
			},
			Curves:         []string{"X25519", "P-256", "P-384", "P-521"},
			SessionTickets: true,
		},
		Headers: []HeaderDef{
			{Name: "User-Agent", Value: "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"},
			{Name: "Accept", Value: "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
			{Name: "Accept-Language", Value: "en-US,en;q=0.5"},
		},
		ALPN:       []string{"h2", "http/1.1"},
		MaxVersion: request.Version2,
	})
	if err != nil {
		panic(err)
	}
	return p
}

// Plain is a minimal HTTP/1.1-only profile useful in tests and as a
// no-impersonation baseline.
func Plain() *Profile {
	p, err := Build("plain", Definition{
		TLS: request.TLSParams{
			Ciphers:    []string{"TLS_AES_128_GCM_SHA256"},
			Extensions: []string{"server_name", "application_layer_protocol_negotiation"},
		},
		ALPN:       []string{"http/1.1"},
		MaxVersion: request.Version1_1,
	})
	if err != nil {
		panic(err)
	}
	return p
}
