package profile_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/mimic/profile"
)

// rawRecords mirrors what a config front end yields after parsing
// JSON/TOML/YAML: untyped maps.
func rawRecords() []map[string]any {
	return []map[string]any{
		{
			"name": "catalog-a",
			"tls": map[string]any{
				"ciphers":    []any{"TLS_AES_128_GCM_SHA256"},
				"extensions": []any{"server_name", "application_layer_protocol_negotiation"},
			},
			"headers": []any{
				map[string]any{"name": "User-Agent", "value": "a/1.0"},
			},
			"alpn":        []any{"h2", "http/1.1"},
			"max_version": 2,
		},
		{
			"name": "catalog-b",
			"tls": map[string]any{
				"ciphers":    []any{"TLS_AES_256_GCM_SHA384"},
				"extensions": []any{"server_name", "application_layer_protocol_negotiation"},
			},
			"alpn":        []any{"http/1.1"},
			"max_version": 1,
		},
	}
}

func TestRegistry_Load(t *testing.T) {
	r := profile.NewRegistry()

	if err := r.Load(rawRecords()); err != nil {
		t.Fatalf("exp nil err; got: %v", err)
	}

	if diff := cmp.Diff([]string{"catalog-a", "catalog-b"}, r.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	p, err := r.Get("catalog-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ua, ok := p.HeaderTemplate().Get("user-agent"); !ok || ua != "a/1.0" {
		t.Errorf("exp decoded User-Agent %q; got %q (found %t)", "a/1.0", ua, ok)
	}
}

func TestRegistry_LoadRejectsWholeBatchOnError(t *testing.T) {
	records := rawRecords()
	records[1]["alpn"] = []any{} // invalid: empty alpn

	r := profile.NewRegistry()
	err := r.Load(records)
	if !errors.Is(err, profile.ErrMalformedProfile) {
		t.Fatalf("exp ErrMalformedProfile; got: %v", err)
	}

	// The valid record must not have been registered either.
	if got := r.Names(); len(got) != 0 {
		t.Errorf("exp empty registry after failed batch; got %v", got)
	}
}

func TestRegistry_LoadRejectsUnknownKeys(t *testing.T) {
	records := rawRecords()[:1]
	records[0]["retries"] = 3 // policy knobs do not belong in profiles

	r := profile.NewRegistry()
	if err := r.Load(records); err == nil {
		t.Error("exp err for unknown key; got nil")
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := profile.NewRegistry()

	if _, err := r.Get("nope"); !errors.Is(err, profile.ErrUnknownProfile) {
		t.Errorf("exp ErrUnknownProfile; got: %v", err)
	}
}
