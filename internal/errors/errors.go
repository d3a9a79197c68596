package errors

import (
	stderrors "errors"
	"fmt"
)

// VeraError is the structured error type for Veracite.
// It carries a stable code, category, severity, and retryability so that
// the indexer and pipeline can make policy decisions without string matching.
type VeraError struct {
	// Code is the unique error code (e.g., "ERR_304_RATE_LIMITED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Provider, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *VeraError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *VeraError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
func (e *VeraError) Is(target error) bool {
	if t, ok := target.(*VeraError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *VeraError) WithDetail(key, value string) *VeraError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new VeraError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *VeraError {
	return &VeraError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a VeraError from an existing error.
// The error's message becomes the VeraError message.
func Wrap(code string, err error) *VeraError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// RateLimited creates a provider rate-limit error.
// The indexer retries these once with a fixed backoff before skipping.
func RateLimited(message string, cause error) *VeraError {
	return New(ErrCodeRateLimited, message, cause)
}

// ProviderError creates an embedding/LLM provider error.
func ProviderError(message string, cause error) *VeraError {
	return New(ErrCodeProvider, message, cause)
}

// EmptyCorpus creates the informational empty-corpus condition.
func EmptyCorpus(message string) *VeraError {
	return New(ErrCodeEmptyCorpus, message, nil)
}

// EmptyQuery creates the malformed-query rejection error.
func EmptyQuery() *VeraError {
	return New(ErrCodeQueryEmpty, "query must not be empty or whitespace only", nil)
}

// DimensionMismatch creates a vector dimension mismatch error.
func DimensionMismatch(expected, got int) *VeraError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *VeraError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *VeraError {
	return New(ErrCodeFileNotFound, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *VeraError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ve *VeraError
	if stderrors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// IsRateLimited reports whether the error chain contains a rate-limit error.
func IsRateLimited(err error) bool {
	return HasCode(err, ErrCodeRateLimited)
}

// HasCode reports whether the error chain contains a VeraError with the code.
func HasCode(err error, code string) bool {
	var ve *VeraError
	if stderrors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}

// GetCode extracts the error code from an error chain.
// Returns empty string if no VeraError is present.
func GetCode(err error) string {
	var ve *VeraError
	if stderrors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// GetCategory extracts the category from an error chain.
func GetCategory(err error) Category {
	var ve *VeraError
	if stderrors.As(err, &ve) {
		return ve.Category
	}
	return ""
}
