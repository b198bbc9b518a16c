package errors

import "fmt"

// Error codes
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeFetch      = "FETCH_ERROR"
	CodeGeneration = "GENERATION_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeCache      = "CACHE_ERROR"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

type ValidationError struct {
	*AppError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

// FetchError reports a failed upstream proxy fetch. UpstreamStatus is the
// HTTP status returned by the proxy, 0 when the transport itself failed.
type FetchError struct {
	*AppError
	URL            string
	UpstreamStatus int
}

func NewFetchError(message, url string, upstreamStatus int, cause error) *FetchError {
	return &FetchError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeFetch,
			StatusCode: 502,
			Context: map[string]any{
				"url":             url,
				"upstream_status": upstreamStatus,
			},
			Cause: cause,
		},
		URL:            url,
		UpstreamStatus: upstreamStatus,
	}
}

// GenerationError reports a failed roast generation attempt. Provider names
// the chat provider that failed.
type GenerationError struct {
	*AppError
	Provider string
}

func NewGenerationError(message, provider string, cause error) *GenerationError {
	return &GenerationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeGeneration,
			StatusCode: 500,
			Context: map[string]any{
				"provider": provider,
			},
			Cause: cause,
		},
		Provider: provider,
	}
}

type StorageError struct {
	*AppError
	Operation string
}

func NewStorageError(message, operation string, cause error) *StorageError {
	return &StorageError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeStorage,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
			},
			Cause: cause,
		},
		Operation: operation,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}
