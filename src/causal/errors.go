package causal

import (
	"errors"
	"fmt"
)

// ErrKind classifies the errors returned by the causal engine.
type ErrKind uint32

const (
	// ErrInvalidConfiguration is returned when a process or strategy is
	// created with a process ID or group size that makes no sense.
	ErrInvalidConfiguration ErrKind = iota
	// ErrMalformedEnvelope is returned when a received envelope does not
	// have the shape expected by the active algorithm.
	ErrMalformedEnvelope
	// ErrStopped is returned by operations on a stopped process.
	ErrStopped
	// ErrCallbackRegistered is returned when a delivery callback is
	// registered twice.
	ErrCallbackRegistered
	// ErrSelectiveSend is returned when an algorithm that only supports
	// broadcast is asked to send to a subset of the group.
	ErrSelectiveSend
)

// String returns the string representation of an ErrKind
func (k ErrKind) String() string {
	switch k {
	case ErrInvalidConfiguration:
		return "Invalid Configuration"
	case ErrMalformedEnvelope:
		return "Malformed Envelope"
	case ErrStopped:
		return "Stopped"
	case ErrCallbackRegistered:
		return "Callback Registered"
	case ErrSelectiveSend:
		return "Selective Send"
	default:
		return "Unknown"
	}
}

// Err is the error type of the causal engine.
type Err struct {
	kind  ErrKind
	key   string
	cause error
}

// NewErr creates an Err of the given kind. key identifies the object the
// error is about, and cause may be nil.
func NewErr(kind ErrKind, key string, cause error) Err {
	return Err{
		kind:  kind,
		key:   key,
		cause: cause,
	}
}

// Kind returns the kind of error.
func (e Err) Kind() ErrKind {
	return e.kind
}

// Error implements the error interface
func (e Err) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s, %s: %v", e.key, e.kind, e.cause)
	}
	return fmt.Sprintf("%s, %s", e.key, e.kind)
}

// Unwrap returns the underlying cause.
func (e Err) Unwrap() error {
	return e.cause
}

// IsErr returns true if err, or any error it wraps, is an Err of the given
// kind.
func IsErr(err error, kind ErrKind) bool {
	var e Err
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}
