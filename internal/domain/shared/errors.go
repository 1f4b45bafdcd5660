// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "registration", "records", "results"
	Op      string // Operation that failed, e.g., "Assign", "Import"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Rule identifies which federation rule a validation failure violated.
// Rules are stable codes that API clients may switch on.
type Rule string

const (
	RuleWeightClassRestricted Rule = "weight_class_restricted"
	RuleWeightClassUnknown    Rule = "weight_class_unknown"
	RuleDivisionAge           Rule = "division_age"
	RuleDivisionUnknown       Rule = "division_unknown"
	RuleBridgeDisabled        Rule = "bridge_disabled"
	RuleBridgePair            Rule = "bridge_pair"
	RuleBridgeWeightClass     Rule = "bridge_weight_class"
	RuleBridgeFrozen          Rule = "bridge_frozen"
	RuleModalityMismatch      Rule = "modality_mismatch"
	RuleModalityRequired      Rule = "modality_required"
	RuleDuplicateModality     Rule = "duplicate_modality"
	RuleRegistrationClosed    Rule = "registration_closed"
	RuleNegativeAttempt       Rule = "negative_attempt"
	RuleRecordRow             Rule = "record_row"
	RuleSexUnknown            Rule = "sex_unknown"
	RuleAgeUnknown            Rule = "age_unknown"
)

// ValidationError reports a recoverable rule violation on caller input.
// It always matches ErrValidation through errors.Is.
type ValidationError struct {
	Rule    Rule
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given rule and field.
func NewValidationError(rule Rule, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Rule:    rule,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Rule, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Rule, e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// AsValidation extracts a *ValidationError from an error chain.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Registration domain errors
var (
	ErrAthleteNotFound     = NewDomainError("registration", "FindAthlete", ErrNotFound, "athlete not found")
	ErrCompetitionNotFound = NewDomainError("registration", "FindCompetition", ErrNotFound, "competition not found")
	ErrEntryNotFound       = NewDomainError("registration", "FindEntry", ErrNotFound, "entry not found")
)

// Records domain errors
var (
	ErrRecordNotFound = NewDomainError("records", "Find", ErrNotFound, "record not found")
	ErrImportBusy     = NewDomainError("records", "Import", ErrConcurrentModification, "another import holds the record book")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
