// Package domain holds the data model and error taxonomy shared by the
// vector store adapter and the HTTP handlers.
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a StoreError so callers can discriminate failures
// without parsing message text.
type Kind int

const (
	// KindUnknown covers failures that fit no other kind.
	KindUnknown Kind = iota
	// KindValidation marks input rejected before any external call.
	KindValidation
	// KindNotFound marks an id that resolves to no stored record.
	KindNotFound
	// KindEngine marks a failure reported by the vector engine or the
	// embedding service.
	KindEngine
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// StoreError is the single error type surfaced by the vector store
// adapter. Op names the failing operation, Kind tags the failure cause.
type StoreError struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Validationf builds a KindValidation error.
func Validationf(op, format string, args ...any) *StoreError {
	return &StoreError{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(op, format string, args ...any) *StoreError {
	return &StoreError{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Enginef wraps an engine or embedding failure.
func Enginef(op string, err error, format string, args ...any) *StoreError {
	return &StoreError{Kind: KindEngine, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err, or KindUnknown if err is not a StoreError.
func KindOf(err error) Kind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a missing-record failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
