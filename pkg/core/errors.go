package core

import (
	"errors"
	"fmt"
)

// ExecutionError represents a structured error with category and details.
// Every ExecutionError returned by a handle operation ends the test that issued it.
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: no_locator, wait_timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an ExecutionError with the same code.
// Copies made with WithCause/WithMessage/WithDetails still match their template.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Predefined errors
var (
	// Assertion errors
	ErrElementNotFound = NewExecutionError(ErrCategoryAssertion, "element_not_found", "element not found")
	ErrTextMismatch    = NewExecutionError(ErrCategoryAssertion, "text_mismatch", "text does not match expected value")
	ErrConditionNotMet = NewExecutionError(ErrCategoryAssertion, "condition_not_met", "condition was not met")

	// Timeout errors
	ErrWaitTimeout       = NewExecutionError(ErrCategoryTimeout, "wait_timeout", "wait condition timed out")
	ErrNotTappable       = NewExecutionError(ErrCategoryTimeout, "not_tappable", "element never became tappable")
	ErrCheckpointTimeout = NewExecutionError(ErrCategoryTimeout, "checkpoint_timeout", "checkpoint was not observed")
	ErrBudgetExceeded    = NewExecutionError(ErrCategoryTimeout, "budget_exceeded", "recovery budget exceeded")

	// Connection errors
	ErrDeviceDisconnected = NewExecutionError(ErrCategoryConnection, "device_disconnected", "device connection lost")
	ErrServerUnreachable  = NewExecutionError(ErrCategoryConnection, "server_unreachable", "could not connect to automation server")

	// App errors
	ErrAppLaunchFailed = NewExecutionError(ErrCategoryApp, "app_launch_failed", "app under test could not be launched")

	// Config errors
	ErrNoLocator       = NewExecutionError(ErrCategoryConfig, "no_locator", "no identifier or label set for element")
	ErrInvalidConfig   = NewExecutionError(ErrCategoryConfig, "invalid_config", "invalid configuration")
	ErrMissingRequired = NewExecutionError(ErrCategoryConfig, "missing_required", "missing required field")
)

// CategoryOf returns the category of the first ExecutionError in err's chain.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryNone
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Category
	}
	// Plain errors only come out of the actor's transport.
	return ErrCategoryConnection
}

// IsConfigError reports whether err is a test-authoring defect rather than an app fault.
func IsConfigError(err error) bool {
	return CategoryOf(err) == ErrCategoryConfig
}
