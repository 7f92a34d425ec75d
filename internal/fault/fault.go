// Package fault classifies errors so the scheduler can apply
// differentiated retry policy. A Transient fault is worth retrying;
// everything else fails the run immediately.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of an error.
type Kind int

const (
	// Unknown is an unclassified error (e.g. an unexpected database
	// failure). Treated as retryable.
	Unknown Kind = iota

	// InvalidPayload means the inbound trigger was malformed.
	InvalidPayload

	// NotFound means a referenced row does not exist. Retrying cannot
	// fix a row that does not exist.
	NotFound

	// Transient covers network errors, timeouts and 5xx responses.
	Transient

	// InvalidCredentials means auth material is absent or malformed.
	InvalidCredentials

	// InvalidDestination means the destination phone is unusable after
	// normalization.
	InvalidDestination
)

func (k Kind) String() string {
	switch k {
	case InvalidPayload:
		return "invalid_payload"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	case InvalidCredentials:
		return "invalid_credentials"
	case InvalidDestination:
		return "invalid_destination"
	default:
		return "unknown"
	}
}

// Error is a classified error.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, keeping it available for errors.Is/As.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, msg: msg, err: err}
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf returns the Kind of err, or Unknown if err carries no
// classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Retryable reports whether the scheduler should re-attempt the failed
// step. Unclassified errors are retried; a wrong input never is.
func Retryable(err error) bool {
	switch KindOf(err) {
	case Transient, Unknown:
		return true
	default:
		return false
	}
}
