// Package errors provides the error taxonomy of the search engine.
// It implements structured error types with machine-readable codes, a fatal
// flag separating search-aborting failures from task-local ones, and
// retryable detection for infrastructure calls.
package errors
