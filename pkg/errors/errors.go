// Package errors defines custom error types for the GRC platform.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error cases.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("access forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("resource conflict")
	ErrInternalError     = errors.New("internal error")
	ErrSystemFramework   = errors.New("system framework is read-only")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrIntegrationSync   = errors.New("integration sync failed")
)

// ValidationError represents a validation error with field-specific details.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError represents an invalid lifecycle transition on a policy
// or task.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from '%s' to '%s'", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NewTransitionError creates a new transition error.
func NewTransitionError(entity, from, to string) *TransitionError {
	return &TransitionError{Entity: entity, From: from, To: to}
}

// IntegrationError represents an error talking to an external integration.
type IntegrationError struct {
	Provider  string
	Operation string
	Cause     error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration '%s' failed during '%s': %v", e.Provider, e.Operation, e.Cause)
}

// Unwrap links every integration failure to ErrIntegrationSync so callers
// can match with errors.Is regardless of the underlying cause.
func (e *IntegrationError) Unwrap() error {
	if e.Cause == nil {
		return ErrIntegrationSync
	}
	return errors.Join(ErrIntegrationSync, e.Cause)
}

// NewIntegrationError creates a new integration error.
func NewIntegrationError(provider, operation string, cause error) *IntegrationError {
	return &IntegrationError{Provider: provider, Operation: operation, Cause: cause}
}
