// Package errors provides standardized error types for the domain layer.
// These errors enable consistent categorization across services and map
// cleanly onto HTTP responses at the API boundary.
package errors

import (
	"errors"
	"fmt"
)

// Standard error categories
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the request is not authorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a conflict with the current state
	ErrConflict = errors.New("conflict")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrDuplicateHash indicates the on-chain event is already claimed by
	// another intent. Surfaced as a conflict, never silently merged.
	ErrDuplicateHash = errors.New("transaction hash already claimed")

	// ErrOracleUncertain indicates a transient chain-oracle failure. The
	// scheduler retries on the next poll cycle; callers never see it
	// unless the tracking deadline expires first.
	ErrOracleUncertain = errors.New("chain oracle uncertain")

	// ErrExpired indicates the intent exceeded its tracking deadline
	ErrExpired = errors.New("intent expired")

	// ErrInvalidPlan indicates an unknown investment plan name
	ErrInvalidPlan = errors.New("invalid investment plan")

	// ErrIntentNotCompleted indicates an investment referenced an intent
	// that has not been confirmed
	ErrIntentNotCompleted = errors.New("intent not completed")
)

// DomainError represents a domain-specific error with additional context
type DomainError struct {
	Err       error
	Code      string
	Message   string
	Details   map[string]interface{}
	Retryable bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *DomainError) Is(target error) bool {
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// WithDetails adds details to the error
func (e *DomainError) WithDetails(details map[string]interface{}) *DomainError {
	e.Details = details
	return e
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Code:    fmt.Sprintf("%s_NOT_FOUND", resource),
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// UnauthorizedError creates an unauthorized error
func UnauthorizedError(message string) *DomainError {
	return &DomainError{
		Err:     ErrUnauthorized,
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

// ValidationError creates a validation error
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

// DuplicateHashError creates a duplicate hash conflict error
func DuplicateHashError(hash string) *DomainError {
	return &DomainError{
		Err:     ErrDuplicateHash,
		Code:    "DUPLICATE_HASH",
		Message: "on-chain transaction already claimed by another intent",
		Details: map[string]interface{}{
			"tx_hash": hash,
		},
	}
}

// OracleUncertainError creates a transient oracle error
func OracleUncertainError(err error) *DomainError {
	de := &DomainError{
		Err:       ErrOracleUncertain,
		Code:      "ORACLE_UNCERTAIN",
		Message:   "chain oracle temporarily unavailable",
		Retryable: true,
	}
	if err != nil {
		de.Details = map[string]interface{}{
			"cause": err.Error(),
		}
	}
	return de
}

// ExpiredError creates an expired intent error
func ExpiredError(id string) *DomainError {
	return &DomainError{
		Err:     ErrExpired,
		Code:    "INTENT_EXPIRED",
		Message: "intent exceeded its tracking deadline",
		Details: map[string]interface{}{
			"intent_id": id,
		},
	}
}

// InvalidPlanError creates an invalid plan error
func InvalidPlanError(name string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidPlan,
		Code:    "INVALID_PLAN",
		Message: fmt.Sprintf("unknown investment plan: %s", name),
	}
}

// InternalError creates an internal error
func InternalError(message string, err error) *DomainError {
	de := &DomainError{
		Err:     ErrInternal,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if err != nil {
		de.Details = map[string]interface{}{
			"cause": err.Error(),
		}
	}
	return de
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateHash checks if an error is a duplicate hash conflict
func IsDuplicateHash(err error) bool {
	return errors.Is(err, ErrDuplicateHash)
}

// IsOracleUncertain checks if an error is a transient oracle failure
func IsOracleUncertain(err error) bool {
	return errors.Is(err, ErrOracleUncertain)
}

// IsExpired checks if an error is an expired intent error
func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired)
}

// IsInvalidPlan checks if an error is an invalid plan error
func IsInvalidPlan(err error) bool {
	return errors.Is(err, ErrInvalidPlan)
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "UNKNOWN_ERROR"
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
