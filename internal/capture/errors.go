package capture

import (
	"errors"
	"fmt"
)

// Kind classifies a capture failure so callers can branch on cause
// instead of matching message text.
type Kind string

const (
	KindPermissionDenied    Kind = "permission_denied"
	KindDeviceNotFound      Kind = "device_not_found"
	KindUnsupported         Kind = "unsupported"
	KindEncodingUnsupported Kind = "encoding_unsupported"
	KindUnknown             Kind = "unknown"
)

// Error is a classified capture failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the user-facing description for the error kind.
func (e *Error) Message() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Permission to use the capture device was denied. Grant access and try again."
	case KindDeviceNotFound:
		return "No matching capture device was found. Connect a device and try again."
	case KindUnsupported:
		return "Media capture is not available in this environment."
	case KindEncodingUnsupported:
		return "The requested recording format is not supported."
	default:
		return "Recording failed due to an unexpected error. Try again."
	}
}

// NewError builds a classified error for the given operation.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// AsError extracts a classified *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the classification of err, or KindUnknown when err
// carries no classification.
func KindOf(err error) Kind {
	if ce, ok := AsError(err); ok {
		return ce.Kind
	}
	return KindUnknown
}

// classify wraps a raw provider error into a classified one. Errors
// that already carry a classification pass through unchanged.
func classify(op string, err error) *Error {
	if ce, ok := AsError(err); ok {
		return ce
	}
	return NewError(KindUnknown, op, err)
}
