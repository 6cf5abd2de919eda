package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
)

// FailureKind classifies why applying a message failed
type FailureKind int

const (
	// FailureTransient covers store and connection errors; redelivery may succeed
	FailureTransient FailureKind = iota
	// FailureMalformed means the payload cannot be decoded; redelivery will not help
	FailureMalformed
	// FailureFatal means a required reference is missing upstream; operators must intervene
	FailureFatal
)

// String returns the kind as used in logs
func (k FailureKind) String() string {
	switch k {
	case FailureMalformed:
		return "malformed"
	case FailureFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// SyncError carries a failure classification through wrapped error chains
type SyncError struct {
	Kind FailureKind
	Err  error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Malformed marks err as a malformed-input failure
func Malformed(err error) error {
	if err == nil {
		return nil
	}
	return &SyncError{Kind: FailureMalformed, Err: err}
}

// MissingReference reports a required referenced entity that does not exist.
// The resulting error is fatal for the message.
func MissingReference(kind string, key any) error {
	return &SyncError{
		Kind: FailureFatal,
		Err:  fmt.Errorf("required %s %v not found: %w", kind, key, ErrNotFound),
	}
}

// KindOf returns the failure kind of err; unclassified errors are transient
func KindOf(err error) FailureKind {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind
	}
	return FailureTransient
}

// IsMalformed reports whether err is a malformed-input failure
func IsMalformed(err error) bool {
	return err != nil && KindOf(err) == FailureMalformed
}

// IsFatal reports whether err must not be retried
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == FailureFatal
}
