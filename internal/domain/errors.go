package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnavailable      = "UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidMemoryKind         = NewDomainError(ErrCodeValidation, "invalid memory kind")
	ErrEmptyMemoryContent        = NewDomainError(ErrCodeValidation, "memory content cannot be empty")
	ErrEmptySearchQuery          = NewDomainError(ErrCodeValidation, "search query cannot be empty")
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidCursor             = NewDomainError(ErrCodeValidation, "invalid pagination cursor")
)

// Not found errors
var (
	ErrMemoryNotFound   = NewDomainError(ErrCodeNotFound, "memory not found")
	ErrRepoFileNotFound = NewDomainError(ErrCodeNotFound, "repository file not found")
)

// Availability errors
var (
	ErrEmbeddingUnavailable = NewDomainError(ErrCodeUnavailable, "embedding provider unavailable")
)
