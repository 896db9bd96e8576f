package service

import (
	"errors"
	"fmt"
)

// Kind classifies service failures for the transport layer.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error is returned by every service operation that fails.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(reason string) error     { return &Error{Kind: KindNotFound, Reason: reason} }
func InvalidInput(reason string) error { return &Error{Kind: KindInvalidInput, Reason: reason} }
func Conflict(reason string) error     { return &Error{Kind: KindConflict, Reason: reason} }
func Forbidden(reason string) error    { return &Error{Kind: KindForbidden, Reason: reason} }
func Unauthorized(reason string) error { return &Error{Kind: KindUnauthorized, Reason: reason} }

// Internal wraps a storage or infrastructure failure.
func Internal(reason string, err error) error {
	return &Error{Kind: KindInternal, Reason: reason, Err: err}
}

// KindOf reports the kind of err; untyped errors are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// Reason returns the client-facing message of err.
func Reason(err error) string {
	var se *Error
	if errors.As(err, &se) {
		if se.Kind == KindInternal {
			return se.Error()
		}
		return se.Reason
	}
	return err.Error()
}
