package services

import (
	"errors"
	"fmt"
)

// Domain errors. Handlers map these onto HTTP statuses; services never
// touch status codes themselves.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProfileNotFound    = errors.New("user profile not found")
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceAlreadyPaid = errors.New("invoice is already paid")
)

// ValidationError rejects malformed or missing input before any write.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}

func missingFieldError(field string) *ValidationError {
	return newValidationError("MissingField", field, fmt.Sprintf("%s is required", field))
}

// PersistenceError wraps a store failure or transaction abort. The
// original cause is retained for diagnostics.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
