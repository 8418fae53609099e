// Package errors provides centralized error definitions and error handling utilities
// for postflow. It defines the error taxonomy of the approval workflow engine,
// error constructors carrying the offending entity and state, and classification
// helpers used by callers to produce actionable messages.
//
// # Error Types
//
// Every command of the workflow engine fails with one of these kinds:
//   - NotFoundError: post, step or task missing, or owned by another tenant
//   - ForbiddenError: authorship or role mismatch
//   - InvalidStateError: operation illegal for the entity's current status
//   - ValidationError: malformed input (missing rejection comment, empty assignee set)
//   - ExternalFailureError: a collaborator such as the publisher gateway failed
//   - ConflictError: the store aborted the transaction because of a concurrent writer
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewNotFoundError("post", postID)
//	err := errors.NewInvalidStateError("post", postID, "PUBLISHED", "DRAFT", "REJECTED")
//	err := errors.NewValidationError("comment is required").WithField("comment")
//
// Checking errors:
//
//	var invalid *errors.InvalidStateError
//	if errors.As(err, &invalid) { ... }
//
//	switch errors.KindOf(err) {
//	case errors.KindNotFound: ...
//	}
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry (conflicts)
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Kind identifies the category of an error for callers that need to branch on it.
type Kind string

const (
	KindUnknown         Kind = "unknown"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindInvalidState    Kind = "invalid_state"
	KindValidation      Kind = "validation"
	KindExternalFailure Kind = "external_failure"
	KindConflict        Kind = "conflict"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = New("not found")
	// ErrForbidden is matched by every ForbiddenError.
	ErrForbidden = New("forbidden")
	// ErrInvalidState is matched by every InvalidStateError.
	ErrInvalidState = New("invalid state")
	// ErrInvalidInput is matched by every ValidationError.
	ErrInvalidInput = New("invalid input")
	// ErrExternalFailure is matched by every ExternalFailureError.
	ErrExternalFailure = New("external failure")
	// ErrConflict is matched by every ConflictError.
	ErrConflict = New("concurrent modification")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PostflowError is the base interface for all postflow errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type PostflowError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Kind returns the error category.
	Kind() Kind

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	kind       Kind
	sentinel   error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is matches the kind's sentinel and anything the cause matches.
func (e *baseError) Is(target error) bool {
	if e.sentinel != nil && target == e.sentinel {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Kind returns the error category.
func (e *baseError) Kind() Kind {
	return e.kind
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found. Resources of
// another tenant are reported the same way.
//
// Example:
//
//	err := errors.NewNotFoundError("post", "abc123")
//	fmt.Println(err) // "post 'abc123' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			kind:       KindNotFound,
			sentinel:   ErrNotFound,
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ForbiddenError represents an actor that is not allowed to perform an operation.
//
// Example:
//
//	err := errors.NewForbiddenError("approve step", "user-1").WithResource("step", "s1")
//	err = err.WithReason("requires role admin, caller has member")
type ForbiddenError struct {
	baseError
	Operation    string
	ActorID      string
	ResourceType string
	ResourceID   string
	Reason       string
}

// NewForbiddenError creates a new ForbiddenError.
func NewForbiddenError(operation, actorID string) *ForbiddenError {
	return &ForbiddenError{
		baseError: baseError{
			message:    operation,
			kind:       KindForbidden,
			sentinel:   ErrForbidden,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Operation: operation,
		ActorID:   actorID,
	}
}

// WithResource adds the resource the actor tried to act on.
func (e *ForbiddenError) WithResource(resourceType, resourceID string) *ForbiddenError {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithReason adds a human-readable reason.
func (e *ForbiddenError) WithReason(reason string) *ForbiddenError {
	e.Reason = reason
	return e
}

// Error returns the formatted error message.
func (e *ForbiddenError) Error() string {
	var parts []string
	if e.ActorID != "" {
		parts = append(parts, fmt.Sprintf("actor=%s", e.ActorID))
	}
	if e.ResourceType != "" {
		parts = append(parts, fmt.Sprintf("%s=%s", e.ResourceType, e.ResourceID))
	}

	prefix := "forbidden"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("forbidden [%s]", strings.Join(parts, ", "))
	}

	msg := fmt.Sprintf("%s: %s", prefix, e.Operation)
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *ForbiddenError) Is(target error) bool {
	if _, ok := target.(*ForbiddenError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// InvalidStateError represents an operation that is illegal for the current
// status of an entity. It carries the current status and the statuses the
// operation would have accepted.
//
// Example:
//
//	err := errors.NewInvalidStateError("post", "p1", "PUBLISHED", "DRAFT", "REJECTED")
//	fmt.Println(err) // "post 'p1' is PUBLISHED, expected one of [DRAFT REJECTED]"
type InvalidStateError struct {
	baseError
	ResourceType string
	ResourceID   string
	Current      string
	Expected     []string
}

// NewInvalidStateError creates a new InvalidStateError.
func NewInvalidStateError(resourceType, resourceID, current string, expected ...string) *InvalidStateError {
	return &InvalidStateError{
		baseError: baseError{
			kind:       KindInvalidState,
			sentinel:   ErrInvalidState,
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Current:      current,
		Expected:     expected,
	}
}

// WithCause adds a cause to the error.
func (e *InvalidStateError) WithCause(cause error) *InvalidStateError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *InvalidStateError) Error() string {
	var msg string
	switch len(e.Expected) {
	case 0:
		msg = fmt.Sprintf("%s '%s' is %s", e.ResourceType, e.ResourceID, e.Current)
	case 1:
		msg = fmt.Sprintf("%s '%s' is %s, expected %s", e.ResourceType, e.ResourceID, e.Current, e.Expected[0])
	default:
		msg = fmt.Sprintf("%s '%s' is %s, expected one of %v", e.ResourceType, e.ResourceID, e.Current, e.Expected)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Is checks if this error matches the target.
func (e *InvalidStateError) Is(target error) bool {
	if _, ok := target.(*InvalidStateError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input.
//
// Example:
//
//	err := errors.NewValidationError("comment is required to reject a step")
//	err = err.WithField("comment").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			kind:       KindValidation,
			sentinel:   ErrInvalidInput,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ExternalFailureError represents a failed call to an external collaborator.
//
// Example:
//
//	err := errors.NewExternalFailureError("publish", cause).WithResource("post", "p1")
type ExternalFailureError struct {
	baseError
	Operation    string
	ResourceType string
	ResourceID   string
}

// NewExternalFailureError creates a new ExternalFailureError.
func NewExternalFailureError(operation string, cause error) *ExternalFailureError {
	return &ExternalFailureError{
		baseError: baseError{
			message:    operation,
			cause:      cause,
			kind:       KindExternalFailure,
			sentinel:   ErrExternalFailure,
			severity:   SeverityError,
			userFacing: true,
		},
		Operation: operation,
	}
}

// WithResource adds the resource the call was made for.
func (e *ExternalFailureError) WithResource(resourceType, resourceID string) *ExternalFailureError {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// Error returns the formatted error message.
func (e *ExternalFailureError) Error() string {
	prefix := "external failure"
	if e.ResourceType != "" {
		prefix = fmt.Sprintf("external failure [%s=%s]", e.ResourceType, e.ResourceID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Operation, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Operation)
}

// Is checks if this error matches the target.
func (e *ExternalFailureError) Is(target error) bool {
	if _, ok := target.(*ExternalFailureError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConflictError represents a transaction the store refused because of a
// concurrent writer. The whole command may be retried.
type ConflictError struct {
	baseError
	Operation string
}

// NewConflictError creates a new ConflictError.
func NewConflictError(operation string, cause error) *ConflictError {
	return &ConflictError{
		baseError: baseError{
			message:    operation,
			cause:      cause,
			kind:       KindConflict,
			sentinel:   ErrConflict,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
	}
}

// Error returns the formatted error message.
func (e *ConflictError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("conflict: %s: %v", e.Operation, e.cause)
	}
	return fmt.Sprintf("conflict: %s", e.Operation)
}

// Is checks if this error matches the target.
func (e *ConflictError) Is(target error) bool {
	if _, ok := target.(*ConflictError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// KindOf returns the category of err, or KindUnknown for errors outside the taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pfErr PostflowError
	if As(err, &pfErr) {
		return pfErr.Kind()
	}
	return KindUnknown
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pfErr PostflowError
	if As(err, &pfErr) {
		return pfErr.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var pfErr PostflowError
	if As(err, &pfErr) {
		return pfErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PostflowError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var pfErr PostflowError
	if As(err, &pfErr) {
		return pfErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike fmt.Errorf with %w, this preserves the PostflowError interface.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load post")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load post %s", postID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
