package shared

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a domain error for callers and transports
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindValidation   ErrorKind = "VALIDATION"
	KindConflict     ErrorKind = "CONFLICT"
	KindPersistence  ErrorKind = "PERSISTENCE"
	KindInvalidInput ErrorKind = "INVALID_INPUT"
	KindInternal     ErrorKind = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Details []string  `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if len(e.Details) == 0 {
		if e.cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.cause)
		}
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of the error carrying the given details
func (e *DomainError) WithDetails(details ...string) *DomainError {
	cp := *e
	cp.Details = append(append([]string(nil), e.Details...), details...)
	return &cp
}

// NewDomainError creates a new domain error. The kind is inferred from the code
// for the common codes and defaults to KindInvalidInput otherwise.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    kindForCode(code),
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewValidationError reports a business rule violation
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewConflictError reports a state or concurrency conflict. Callers may retry.
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

// NewPersistenceError wraps a storage failure
func NewPersistenceError(op string, cause error) *DomainError {
	return &DomainError{
		Kind:    KindPersistence,
		Code:    "PERSISTENCE_FAILURE",
		Message: "failed to " + op,
		cause:   cause,
	}
}

// KindOf returns the kind of err, or KindInternal when err is not a DomainError
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

// IsValidation reports whether err is a validation domain error
func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }

// IsConflict reports whether err is a conflict domain error
func IsConflict(err error) bool { return err != nil && KindOf(err) == KindConflict }

// IsPersistence reports whether err is a persistence domain error
func IsPersistence(err error) bool { return err != nil && KindOf(err) == KindPersistence }

func kindForCode(code string) ErrorKind {
	switch code {
	case "NOT_FOUND":
		return KindNotFound
	case "CONCURRENCY_CONFLICT", "ALREADY_EXISTS", "INVALID_STATE":
		return KindConflict
	case "VALIDATION_FAILED":
		return KindValidation
	default:
		return KindInvalidInput
	}
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewConflictError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewConflictError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewConflictError("INVALID_STATE", "Operation not allowed in current state")
)
