package member

import (
	"errors"
	"fmt"
)

// Sentinel causes. Every *Error unwraps to one of these, or to the
// underlying keyspec, audit or backend error.
var (
	ErrNotFound    = errors.New("object not found")
	ErrOutOfBounds = errors.New("out of bounds")
	ErrAuditFull   = errors.New("audit trail full")
	ErrInvalid     = errors.New("invalid input")
)

// Code categorizes member errors.
type Code string

const (
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeKeyWildcards Code = "KEY_WILDCARDS"
	CodeKeyBinpath   Code = "KEY_BINPATH"
	CodeKeyAppend    Code = "KEY_APPEND"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInconsistent Code = "INCONSISTENT"
	CodeOutOfBounds  Code = "OUT_OF_BOUNDS"
)

// Error is a recoverable member failure. Inside a transaction the same
// value is passed to the transaction's Abort.
type Error struct {
	Code    Code
	Message string

	// Keyspec is the xpath form of the key involved, if any.
	Keyspec string

	// Xact is the transaction the operation ran in, if any.
	Xact string

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Keyspec != "" {
		msg += fmt.Sprintf(" (keyspec=%s)", e.Keyspec)
	}
	if e.Xact != "" {
		msg += fmt.Sprintf(" (xact=%s)", e.Xact)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var me *Error
	if errors.As(err, &me) {
		return me.Code, true
	}
	return "", false
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsWildcards reports whether err was caused by a wildcarded key where a
// concrete one is required.
func IsWildcards(err error) bool {
	c, ok := CodeOf(err)
	return ok && c == CodeKeyWildcards
}

// Status is the outcome vocabulary of the member API.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusNotFound
	StatusOutOfBounds
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusNotFound:
		return "not_found"
	case StatusOutOfBounds:
		return "out_of_bounds"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StatusOf maps an operation error to a Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrOutOfBounds):
		return StatusOutOfBounds
	default:
		return StatusFailure
	}
}
