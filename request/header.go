package request

import "strings"

// Header is a single name/value pair. Name casing is preserved exactly
// as configured; fingerprint-sensitive servers inspect it.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list. Unlike net/http's map-backed
// http.Header, it preserves insertion order, casing, and duplicates.
type Headers []Header

// Add appends a header, keeping duplicates.
func (hs *Headers) Add(name, value string) {
	*hs = append(*hs, Header{Name: name, Value: value})
}

// Get returns the first value whose name matches case-insensitively,
// and whether any match was found.
func (hs Headers) Get(name string) (string, bool) {
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// Values returns all values whose name matches case-insensitively,
// in list order.
func (hs Headers) Values(name string) []string {
	var vals []string
	for _, h := range hs {
		if strings.EqualFold(h.Name, name) {
			vals = append(vals, h.Value)
		}
	}
	return vals
}

// Has reports whether any header matches name case-insensitively.
func (hs Headers) Has(name string) bool {
	_, ok := hs.Get(name)
	return ok
}

// Clone returns an independent copy of the list.
func (hs Headers) Clone() Headers {
	if hs == nil {
		return nil
	}
	cpy := make(Headers, len(hs))
	copy(cpy, hs)
	return cpy
}
