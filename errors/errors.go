package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type of the search engine.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Fatal indicates the error aborts the whole search.
	Fatal bool `json:"fatal"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with fatal and retryable flags derived from the code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Fatal:     IsFatalCode(code),
		Retryable: IsRetryableCode(code),
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// --- Configuration errors ---

// Configuration creates a new AppError for an invalid configuration.
func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message)
}

// Configurationf creates a configuration error with a formatted message.
func Configurationf(format string, args ...any) *AppError {
	return Newf(ErrCodeConfiguration, format, args...)
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("Missing required field: %s", field)).
		WithDetail("field", field)
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	err := New(ErrCodeInvalidInput, fmt.Sprintf("Invalid input: %s", reason))
	if field != "" {
		err.WithDetail("field", field)
	}
	return err
}

// --- Task errors ---

// Data creates a new AppError for data a pipeline cannot handle.
func Data(message string) *AppError {
	return New(ErrCodeData, message)
}

// Dataf creates a data error with a formatted message.
func Dataf(format string, args ...any) *AppError {
	return Newf(ErrCodeData, format, args...)
}

// Pipeline creates a new AppError for a failing pipeline component.
func Pipeline(component string, cause error) *AppError {
	msg := "pipeline failed"
	if component != "" {
		msg = fmt.Sprintf("component %q failed", component)
	}
	err := New(ErrCodePipeline, msg).WithCause(cause)
	if component != "" {
		err.WithDetail("component", component)
	}
	return err
}

// Timeout creates a new AppError for an operation that exceeded its budget.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out", operation)).
		WithDetail("operation", operation)
}

// Cancelled creates a new AppError for cancelled work.
func Cancelled(operation string) *AppError {
	return New(ErrCodeCancelled, fmt.Sprintf("%s was cancelled", operation))
}

// --- Resource errors ---

// Resource creates a new AppError for an engine that cannot run work.
func Resource(message string, cause error) *AppError {
	return New(ErrCodeResource, message).WithCause(cause)
}

// Storage creates a new AppError for a failing ledger store.
func Storage(operation string, cause error) *AppError {
	return New(ErrCodeStorage, fmt.Sprintf("ledger store %s failed", operation)).WithCause(cause)
}

// --- Lookup errors ---

// NoSuccessfulPipeline creates the error returned when nothing can be ranked.
func NoSuccessfulPipeline() *AppError {
	return New(ErrCodeNoSuccessfulPipeline, "no successful pipeline: every evaluated configuration errored")
}

// PipelineNotFound creates a new AppError for an unknown pipeline id.
func PipelineNotFound(id int) *AppError {
	return New(ErrCodePipelineNotFound, "Pipeline not found").WithDetail("id", id)
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	err := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource)).
		WithDetail("resource", resource)
	if id != "" {
		err.WithDetail("id", id)
	}
	return err
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}

// --- Inspection ---

// CodeOf returns the code of the first AppError in err's chain.
// Context errors map to TIMEOUT and CANCELLED; anything else is INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case stderrors.Is(err, context.Canceled):
		return ErrCodeCancelled
	}
	return ErrCodeInternal
}

// IsFatal reports whether err aborts a search.
func IsFatal(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Fatal
	}
	return false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
