package hyperopt

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of domain-error condition that occurred, so
// callers can distinguish them without parsing messages.
type ErrorCode string

// Error codes for violated preconditions that are surfaced to the caller
// rather than caught internally.
const (
	ErrDuplicateParameterName ErrorCode = "duplicate_parameter_name"
	ErrEmptyDirections        ErrorCode = "empty_directions"
	ErrUnknownTrial           ErrorCode = "unknown_trial"
	ErrInvalidTransition      ErrorCode = "invalid_transition"
	ErrMissingValue           ErrorCode = "missing_value"
	ErrLengthMismatch         ErrorCode = "length_mismatch"
	ErrUnknownParameterKind   ErrorCode = "unknown_parameter_kind"
	ErrParameterNotInSpace    ErrorCode = "parameter_not_in_space"
	ErrInvalidSnapshot        ErrorCode = "invalid_snapshot"
)

// DomainError reports a violated precondition: a fatal domain error per the
// error table (duplicate names, unknown trial numbers, invalid state
// transitions, and the like). It is always returned, never panicked,
// except where a constructor is explicitly documented as panicking.
type DomainError struct {
	Code    ErrorCode
	Message string
	cause   error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("hyperopt: %s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("hyperopt: %s: %s", e.Code, e.Message)
}

// Unwrap allows errors.As and errors.Unwrap to reach a wrapped cause.
func (e *DomainError) Unwrap() error {
	return e.cause
}

func newDomainError(code ErrorCode, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapDomainError(code ErrorCode, cause error, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WrapDomainError reports a violated precondition caused by an underlying
// error - for instance a malformed external document that callers outside
// this package (such as the snapshot codec) need to surface as a
// DomainError rather than a bare error.
func WrapDomainError(code ErrorCode, cause error, format string, args ...any) *DomainError {
	return wrapDomainError(code, cause, format, args...)
}

// AsDomainError reports whether err is (or wraps) a *DomainError, and
// returns it. Callers compare the returned error's Code field to the
// ErrorCode constants above.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	ok := errors.As(err, &de)
	return de, ok
}
