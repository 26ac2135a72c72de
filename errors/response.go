package errors

import (
	stderrors "errors"
)

// ErrorResponse is the JSON structure a worker returns for a failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent back to the submitter.
type ErrorBody struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Fatal     bool                   `json:"fatal"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   msg,
			Fatal:     e.Fatal,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// FromResponse rebuilds an AppError received from a worker.
func FromResponse(r ErrorResponse) *AppError {
	return &AppError{
		Code:      r.Error.Code,
		Message:   r.Error.Message,
		Fatal:     r.Error.Fatal,
		Retryable: r.Error.Retryable,
		Details:   r.Error.Details,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
