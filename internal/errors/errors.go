// Package errors provides centralized error definitions and error handling
// utilities for the planforge codebase. It defines domain-specific errors for
// the planning pipeline, semantic error types, error constructors with context
// wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of the planning pipeline:
//   - CycleError: a dependency cycle in the task graph, carrying the path
//   - DanglingError: a dependency reference to a task that does not exist
//   - InvalidTaskError: malformed generator output at a given index
//   - GenerationError: an external generation or refinement call failed
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewCycleError([]string{"a", "b", "a"})
//	err := errors.NewInvalidTaskError(3, "missing title")
//	err := errors.NewGenerationError("generator command failed", cause)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrDependencyCycle) { ... }
//
//	var cycleErr *errors.CycleError
//	if errors.As(err, &cycleErr) { path := cycleErr.Path }
//
//	if errors.IsRetryable(err) { ... }
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

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Graph- and task-related sentinel errors
var (
	// ErrDependencyCycle indicates a circular dependency among tasks.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrDanglingDependency indicates a dependency on a task that does not exist.
	ErrDanglingDependency = New("dangling dependency reference")
	// ErrSelfDependency indicates a task that depends on itself.
	ErrSelfDependency = New("task depends on itself")
	// ErrTaskNotFound indicates that a task could not be found.
	ErrTaskNotFound = New("task not found")
)

// Generation-related sentinel errors
var (
	// ErrInvalidTask indicates malformed task data from the generator.
	ErrInvalidTask = New("invalid task")
	// ErrGenerationFailed indicates that an external generation call failed.
	ErrGenerationFailed = New("generation failed")
	// ErrEmptyGeneration indicates that the generator produced no tasks.
	ErrEmptyGeneration = New("generator returned no tasks")
)

// Plan-related sentinel errors
var (
	// ErrPlanNotFound indicates that a plan file could not be found.
	ErrPlanNotFound = New("plan not found")
	// ErrPlanInvalid indicates that a plan file failed to parse or validate.
	ErrPlanInvalid = New("plan is invalid")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PlanError is the base interface for all planforge errors. It extends the
// standard error interface with methods for error handling and classification.
type PlanError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
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

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
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
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// CycleError represents a dependency cycle in the task graph. Path holds the
// offending node sequence; the first and last entries are the same node.
//
// Example:
//
//	err := errors.NewCycleError([]string{"a", "b", "c", "a"})
//	fmt.Println(err) // "dependency cycle detected: a -> b -> c -> a"
type CycleError struct {
	baseError
	Path []string
}

// NewCycleError creates a new CycleError for the given cycle path.
func NewCycleError(path []string) *CycleError {
	return &CycleError{
		baseError: baseError{
			message:    "dependency cycle detected",
			cause:      ErrDependencyCycle,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Path: append([]string(nil), path...),
	}
}

// Error returns the formatted error message.
func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.message, strings.Join(e.Path, " -> "))
}

// Is checks if this error matches the target.
func (e *CycleError) Is(target error) bool {
	if _, ok := target.(*CycleError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DanglingError represents a dependency reference to a task id that was never
// defined in the current context.
//
// Example:
//
//	err := errors.NewDanglingError("task-3", "task-9")
//	fmt.Println(err) // "task 'task-3' depends on unknown task 'task-9'"
type DanglingError struct {
	baseError
	TaskID     string
	MissingRef string
}

// NewDanglingError creates a new DanglingError.
func NewDanglingError(taskID, missingRef string) *DanglingError {
	return &DanglingError{
		baseError: baseError{
			message:    "dangling dependency reference",
			cause:      ErrDanglingDependency,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		TaskID:     taskID,
		MissingRef: missingRef,
	}
}

// Error returns the formatted error message.
func (e *DanglingError) Error() string {
	return fmt.Sprintf("task '%s' depends on unknown task '%s'", e.TaskID, e.MissingRef)
}

// Is checks if this error matches the target.
func (e *DanglingError) Is(target error) bool {
	if _, ok := target.(*DanglingError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// InvalidTaskError represents malformed task data received from the external
// generator. Index is the position of the offending task in the generator
// output, or -1 when the output as a whole was not a task array.
//
// Example:
//
//	err := errors.NewInvalidTaskError(2, "missing title")
//	fmt.Println(err) // "invalid task at index 2: missing title"
type InvalidTaskError struct {
	baseError
	Index  int
	Reason string
}

// NewInvalidTaskError creates a new InvalidTaskError.
func NewInvalidTaskError(index int, reason string) *InvalidTaskError {
	return &InvalidTaskError{
		baseError: baseError{
			message:    "invalid task",
			cause:      ErrInvalidTask,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Index:  index,
		Reason: reason,
	}
}

// Error returns the formatted error message.
func (e *InvalidTaskError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid generator output: %s", e.Reason)
	}
	return fmt.Sprintf("invalid task at index %d: %s", e.Index, e.Reason)
}

// Is checks if this error matches the target.
func (e *InvalidTaskError) Is(target error) bool {
	if _, ok := target.(*InvalidTaskError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// GenerationError represents a failed call to the external generator or
// refiner. Stage records which call failed.
//
// Example:
//
//	err := errors.NewGenerationError("command exited", cause).WithStage("refine")
//	fmt.Println(err) // "generation error [stage=refine]: command exited: ..."
type GenerationError struct {
	baseError
	Stage string
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(message string, cause error) *GenerationError {
	return &GenerationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithStage adds the pipeline stage to the error context.
func (e *GenerationError) WithStage(stage string) *GenerationError {
	e.Stage = stage
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *GenerationError) WithRetryable(r bool) *GenerationError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *GenerationError) Error() string {
	prefix := "generation error"
	if e.Stage != "" {
		prefix = fmt.Sprintf("generation error [stage=%s]", e.Stage)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *GenerationError) Is(target error) bool {
	if _, ok := target.(*GenerationError); ok {
		return true
	}
	if errors.Is(target, ErrGenerationFailed) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("plan", "plan.json")
//	fmt.Println(err) // "plan 'plan.json' not found"
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
			severity:   SeverityWarning,
			retryable:  false,
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

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("max iterations must be positive")
//	err = err.WithField("planner.max_iterations").WithValue(-1)
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
			severity:   SeverityWarning,
			retryable:  false,
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
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition that
// may succeed on retry, such as a failed external generation call.
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var planErr PlanError
	if As(err, &planErr) {
		return planErr.IsRetryable()
	}

	return Is(err, ErrGenerationFailed)
}

// IsUserFacing returns true if the error message is safe to display to end
// users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var planErr PlanError
	if As(err, &planErr) {
		return planErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error. Returns SeverityError
// for errors that don't implement PlanError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var planErr PlanError
	if As(err, &planErr) {
		return planErr.Severity()
	}

	return SeverityError
}

// CyclePath extracts the cycle path from an error chain containing a
// CycleError, or nil when there is none.
func CyclePath(err error) []string {
	var cycleErr *CycleError
	if As(err, &cycleErr) {
		return cycleErr.Path
	}
	return nil
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load plan")
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
//	err := errors.Wrapf(baseErr, "failed to load plan %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
