package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Reason categorizes a store failure.
type Reason string

const (
	ReasonUnknown          Reason = "unknown"
	ReasonNotFound         Reason = "not_found"
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonUnavailable      Reason = "unavailable"
	ReasonInvalidArgument  Reason = "invalid_argument"
)

// Error is the single failure type of the port.
type Error struct {
	Op         string
	Collection string
	Reason     Reason
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s failed (%s)", e.Op, e.Collection, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Fail builds an *Error. Context cancellation and deadline errors are
// reported as unavailable.
func Fail(op, collection string, reason Reason, err error) *Error {
	if reason == "" || reason == ReasonUnknown {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			reason = ReasonUnavailable
		} else {
			reason = ReasonUnknown
		}
	}
	return &Error{Op: op, Collection: collection, Reason: reason, Err: err}
}

// ReasonOf returns the reason of a *Error in err's chain, or unknown.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonUnknown
}

// IsNotFound reports whether err is a not_found store error.
func IsNotFound(err error) bool {
	return ReasonOf(err) == ReasonNotFound
}
