// Package errs defines the error kinds the core components use to signal
// failure semantics across the assess/submit/worker boundaries.
package errs

import "errors"

// Kind classifies an error for propagation purposes across the
// assess/submit/worker boundaries.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindStoreTransient
	KindStoreFatal
	KindDeadlineExceeded
	KindPublishFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindStoreTransient:
		return "StoreTransient"
	case KindStoreFatal:
		return "StoreFatal"
	case KindDeadlineExceeded:
		return "DeadlineExceeded"
	case KindPublishFailed:
		return "PublishFailed"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on
// propagation semantics with errors.As instead of string matching.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Is reports whether err (or any error it wraps) is of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
