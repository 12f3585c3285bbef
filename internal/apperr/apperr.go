// Package apperr is the error taxonomy shared by every service.
// Operations return (T, error); callers branch on KindOf(err).
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	BadInput
	Unauthorized
	NotFound
	Gone
	AlreadyExists
)

func (k Kind) String() string {
	switch k {
	case BadInput:
		return "bad_input"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	case Gone:
		return "gone"
	case AlreadyExists:
		return "already_exists"
	default:
		return "internal"
	}
}

// Status is the wire status code sent back to clients.
type Status string

const (
	StatusOK            Status = "OK"
	StatusBadInput      Status = "BAD_INPUT"
	StatusUnauthorized  Status = "UNAUTHORIZED"
	StatusNotFound      Status = "NOT_FOUND"
	StatusGone          Status = "GONE"
	StatusAlreadyExists Status = "ALREADY_EXISTS"
	StatusInternal      Status = "INTERNAL"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) error { return &Error{Kind: kind, Msg: msg} }

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to a lower-level error.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func BadInputf(format string, args ...any) error     { return Newf(BadInput, format, args...) }
func Unauthorizedf(format string, args ...any) error { return Newf(Unauthorized, format, args...) }
func NotFoundf(format string, args ...any) error     { return Newf(NotFound, format, args...) }
func Gonef(format string, args ...any) error         { return Newf(Gone, format, args...) }

// KindOf reports the kind of err. Errors that never passed through this
// package are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf maps err to the wire status. A nil error is OK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	switch KindOf(err) {
	case BadInput:
		return StatusBadInput
	case Unauthorized:
		return StatusUnauthorized
	case NotFound:
		return StatusNotFound
	case Gone:
		return StatusGone
	case AlreadyExists:
		return StatusAlreadyExists
	default:
		return StatusInternal
	}
}

// Public returns a message safe to show to a client. Internal causes are
// hidden behind a generic text.
func Public(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == Internal {
			if e.Msg != "" {
				return e.Msg
			}
			return "internal error"
		}
		return e.Error()
	}
	return "internal error"
}
