package kvdict

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error raised by a Store operation. Kinds, not
// messages, are what the comparator treats as equivalent across revisions.
type Kind string

const (
	// KindNone marks the absence of an error.
	KindNone Kind = ""
	// KindNotFound indicates the requested key was not found.
	KindNotFound Kind = "not_found"
	// KindWrongType indicates an argument of the wrong type.
	KindWrongType Kind = "wrong_type"
	// KindUnsupportedValue indicates a value the store cannot encode.
	KindUnsupportedValue Kind = "unsupported_value"
	// KindConnection indicates the backing store was unreachable.
	KindConnection Kind = "connection"
	// KindTimeout indicates an operation exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindInternal indicates an unclassified store failure.
	KindInternal Kind = "internal"
	// KindCrash indicates a process-level failure (recovered panic).
	KindCrash Kind = "crash"
)

// Error is the tagged error every Store implementation returns so the
// harness can compare raised conditions across revisions by kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new tagged Error.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err. Untagged errors map to KindInternal;
// context deadline errors map to KindTimeout.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var kvErr *Error
	if errors.As(err, &kvErr) {
		return kvErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// IsNotFound checks if the error is a missing-key error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsTimeout checks if the error is a timeout error.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// Recovered converts a recovered panic value into a crash-kind Error.
func Recovered(r any) *Error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("%s", v)
	default:
		err = fmt.Errorf("%v", v)
	}

	return NewError(KindCrash, "recovered from panic", err)
}
