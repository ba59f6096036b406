package store

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure so components can pick a recovery policy
// without inspecting backend-specific error values.
type Kind int

const (
	// KindUnknown is the zero value; treated as fatal.
	KindUnknown Kind = iota
	// KindAuth covers credential and token failures. Fatal, never retried.
	KindAuth
	// KindPermission covers denied list/create/append calls. Fatal, never
	// retried automatically.
	KindPermission
	// KindNotFound covers missing identifiers (a folder id, a sheet range).
	KindNotFound
	// KindTransient covers network failures, rate limits and 5xx responses.
	// Retryable with bounded backoff.
	KindTransient
	// KindSchema covers an expected column or header missing from a table.
	KindSchema
	// KindUnavailable covers empty or unreachable reference tables at session
	// start.
	KindUnavailable
)

// String returns a short, stable label for logging.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	case KindSchema:
		return "schema"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the classified failure every external-call error is translated
// into at the component boundary. Op names the failed operation and ID the
// identifier involved, so NotFound surfaces actionable detail.
type Error struct {
	Kind Kind
	Op   string
	ID   string
	Err  error
}

// NewError wraps err with a kind and the operation/identifier context.
func NewError(kind Kind, op, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.ID != "" && e.Err != nil:
		return fmt.Sprintf("store: %s %s (%s): %v", e.Kind, e.Op, e.ID, e.Err)
	case e.ID != "":
		return fmt.Sprintf("store: %s %s (%s)", e.Kind, e.Op, e.ID)
	case e.Err != nil:
		return fmt.Sprintf("store: %s %s: %v", e.Kind, e.Op, e.Err)
	default:
		return fmt.Sprintf("store: %s %s", e.Kind, e.Op)
	}
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from err, or KindUnknown when err does
// not carry one.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsAuth reports whether err is a credential failure.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsPermission reports whether err is a denied operation.
func IsPermission(err error) bool { return KindOf(err) == KindPermission }

// IsNotFound reports whether err is a missing identifier.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// IsSchema reports whether err is a missing column or header.
func IsSchema(err error) bool { return KindOf(err) == KindSchema }

// IsUnavailable reports whether err means the backing tables are empty or
// unreachable.
func IsUnavailable(err error) bool { return KindOf(err) == KindUnavailable }
