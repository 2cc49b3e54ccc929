// Package fault defines the closed set of machine-readable failure codes
// shared by the ingest API, the fetch client, and the worker loops.
//
// Every user-visible rejection and every dead-letter reason is one of these
// codes; free-form detail rides alongside in the wrapped error, never in the
// code itself.
package fault

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable failure class.
type Code string

const (
	CodeValidation        Code = "validation_error"
	CodeUnsupportedMIME   Code = "unsupported_mime"
	CodeSizeLimit         Code = "size_limit"
	CodeUnsupportedScheme Code = "unsupported_scheme"
	CodeForbiddenAddress  Code = "forbidden_address"
	CodeRedirectLimit     Code = "redirect_limit"
	CodeRemoteTimeout     Code = "remote_timeout"
	CodeIO                Code = "io_error"
	CodeTenantMissing     Code = "tenant_missing"
	CodeTenantMalformed   Code = "tenant_malformed"
	CodeTenantUnknown     Code = "tenant_unknown"
	CodeHashDuplicate     Code = "hash_duplicate"
	CodeParse             Code = "parse_error"
)

// Error pairs a Code with an underlying cause. It is the typed error carried
// across package boundaries so callers switch on the code instead of matching
// message strings.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a fault Error with a formatted cause.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a code to an existing error. A nil err yields a bare code.
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the Code from err, walking the wrap chain. Errors that do
// not carry a fault code classify as io_error.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeIO
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// Retriable reports whether a failure class is worth retrying. The mapping
// is fixed: remote timeouts and I/O faults retry, everything else is
// terminal.
func (c Code) Retriable() bool {
	switch c {
	case CodeRemoteTimeout, CodeIO:
		return true
	default:
		return false
	}
}
