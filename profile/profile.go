package profile

import (
	"fmt"
	"slices"

	"github.com/adamwoolhether/mimic/request"
)

// alpnExtension is the TLS extension name the ALPN list travels in.
// A definition advertising any ALPN protocol must include it in the
// extension order or the ClientHello could never carry the offer.
const alpnExtension = "application_layer_protocol_negotiation"

// Definition is the raw material for a profile, as assembled in code
// or decoded from configuration.
type Definition struct {
	TLS        request.TLSParams `mapstructure:"tls"`
	Headers    []HeaderDef       `mapstructure:"headers" validate:"omitempty,dive"`
	ALPN       []string          `mapstructure:"alpn" validate:"required,min=1,dive,oneof=h2 http/1.1"`
	MaxVersion request.Version   `mapstructure:"max_version" validate:"required"`
}

// HeaderDef is one ordered default header in a definition.
type HeaderDef struct {
	Name  string `mapstructure:"name" validate:"required"`
	Value string `mapstructure:"value"`
}

// Profile is an immutable impersonation profile. It implements
// [request.Profile]; handles copy its fields by value at apply time.
type Profile struct {
	name       string
	tls        request.TLSParams
	headers    request.Headers
	alpn       []string
	maxVersion request.Version
}

// Build validates def and returns an immutable Profile. Internal
// inconsistency fails with a [*MalformedProfileError] carrying one
// entry per offending field.
func Build(name string, def Definition) (*Profile, error) {
	fields := validateDefinition(name, def)

	if slices.Contains(def.ALPN, "h2") && !slices.Contains(def.TLS.Extensions, alpnExtension) {
		fields = append(fields, FieldError{
			Field: "tls.extensions",
			Err:   fmt.Sprintf("alpn advertises h2 but extension order lacks %q", alpnExtension),
		})
	}
	if def.MaxVersion == request.Version2 && !slices.Contains(def.ALPN, "h2") {
		fields = append(fields, FieldError{
			Field: "alpn",
			Err:   "max version HTTP/2 requires h2 in the alpn list",
		})
	}

	if len(fields) > 0 {
		return nil, &MalformedProfileError{Name: name, Fields: fields}
	}

	headers := make(request.Headers, 0, len(def.Headers))
	for _, h := range def.Headers {
		headers.Add(h.Name, h.Value)
	}

	p := &Profile{
		name:       name,
		tls:        cloneTLS(def.TLS),
		headers:    headers,
		alpn:       slices.Clone(def.ALPN),
		maxVersion: def.MaxVersion,
	}

	return p, nil
}

func cloneTLS(t request.TLSParams) request.TLSParams {
	return request.TLSParams{
		Ciphers:        slices.Clone(t.Ciphers),
		Extensions:     slices.Clone(t.Extensions),
		Curves:         slices.Clone(t.Curves),
		SessionTickets: t.SessionTickets,
	}
}

// ProfileName returns the profile's registry name.
func (p *Profile) ProfileName() string { return p.name }

// ALPNList returns a copy of the advertised ALPN protocols.
func (p *Profile) ALPNList() []string { return slices.Clone(p.alpn) }

// HeaderTemplate returns a copy of the ordered default header set.
func (p *Profile) HeaderTemplate() request.Headers { return p.headers.Clone() }

// MaxVersion returns the profile's HTTP version ceiling.
func (p *Profile) MaxVersion() request.Version { return p.maxVersion }

// TLS returns a copy of the ClientHello parameters.
func (p *Profile) TLS() request.TLSParams { return cloneTLS(p.tls) }
