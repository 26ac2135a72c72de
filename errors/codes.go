package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Search-level errors (fatal, raised before or between batches)
const (
	// ErrCodeConfiguration indicates an invalid problem, search or engine configuration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeResource indicates the engine cannot allocate or reach workers.
	ErrCodeResource ErrorCode = "RESOURCE_EXHAUSTED"
)

// Task-local errors (attached to an evaluation result)
const (
	// ErrCodeData indicates a pipeline cannot fit or transform the given data.
	ErrCodeData ErrorCode = "DATA_ERROR"
	// ErrCodePipeline indicates a component failed for reasons other than its input.
	ErrCodePipeline ErrorCode = "PIPELINE_ERROR"
	// ErrCodeTimeout indicates a task exceeded its time budget.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCancelled indicates the work was cancelled before completing.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Lookup errors
const (
	// ErrCodeNoSuccessfulPipeline indicates no evaluated configuration succeeded.
	ErrCodeNoSuccessfulPipeline ErrorCode = "NO_SUCCESSFUL_PIPELINE"
	// ErrCodePipelineNotFound indicates an unknown pipeline id.
	ErrCodePipelineNotFound ErrorCode = "PIPELINE_NOT_FOUND"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeStorage indicates a ledger store failure.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

var fatalCodes = map[ErrorCode]bool{
	ErrCodeConfiguration: true,
	ErrCodeMissingField:  true,
	ErrCodeInvalidInput:  true,
	ErrCodeResource:      true,
}

var retryableCodes = map[ErrorCode]bool{
	ErrCodeResource: true,
	ErrCodeStorage:  true,
	ErrCodeTimeout:  true,
}

// IsFatalCode returns true if the error code aborts a search.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
