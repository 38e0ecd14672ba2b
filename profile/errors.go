package profile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedProfile is the sentinel wrapped by [MalformedProfileError].
var ErrMalformedProfile = errors.New("malformed profile")

// ErrUnknownProfile is returned by Registry.Get for an unregistered name.
var ErrUnknownProfile = errors.New("unknown profile")

// FieldError reports one invalid field in a profile definition.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors is a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a human-readable
// summary of all field errors.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// MalformedProfileError is returned by Build when a definition is
// internally inconsistent.
type MalformedProfileError struct {
	Name   string
	Fields FieldErrors
}

func (e *MalformedProfileError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrMalformedProfile, e.Name, e.Fields)
}

func (e *MalformedProfileError) Unwrap() error {
	return ErrMalformedProfile
}
