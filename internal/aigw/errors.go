package aigw

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed classification of gateway failures. The retry
// supervisor switches on kind; nothing in this package classifies errors
// by message substring.
type ErrorKind string

const (
	// Transient parse failures — retried by the supervisor.
	KindParseEmpty     ErrorKind = "parse_empty"
	KindParseMalformed ErrorKind = "parse_malformed"
	KindParseTruncated ErrorKind = "parse_truncated"

	// Fatal upstream failures — never retried.
	KindUpstreamAuth         ErrorKind = "upstream_auth"
	KindUpstreamQuota        ErrorKind = "upstream_quota"
	KindUpstreamConnectivity ErrorKind = "upstream_connectivity"
	KindUnsupportedProvider  ErrorKind = "unsupported_provider"
)

// Error is a classified gateway failure.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a classified error without a cause.
func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrapError builds a classified error around a cause.
func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsTransient reports whether err is a parse-class failure that a
// re-ask is expected to fix. Anything unclassified is fatal.
func IsTransient(err error) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	switch ge.Kind {
	case KindParseEmpty, KindParseMalformed, KindParseTruncated:
		return true
	}
	return false
}

// KindOf extracts the kind of a classified error ("" if unclassified).
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
