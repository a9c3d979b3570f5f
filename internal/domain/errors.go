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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeExtraction    = "EXTRACTION_ERROR"
	ErrCodePersistence   = "PERSISTENCE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Input errors: fatal to an ingestion run before any expensive work.
var (
	ErrInvalidSignature    = NewDomainError(ErrCodeInvalidInput, "uploaded file is not a valid PDF")
	ErrNoExtractableText   = NewDomainError(ErrCodeInvalidInput, "document contains no extractable text")
	ErrInvalidUpload       = NewDomainError(ErrCodeInvalidInput, "invalid upload")
	ErrMissingCourseID     = NewDomainError(ErrCodeValidation, "course_id is required")
	ErrInvalidDocumentKind = NewDomainError(ErrCodeValidation, "invalid document kind")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "knowledge chunk not found")
)

// Extraction errors: fatal for the owning document.
var (
	ErrExtractionFailed = NewDomainError(ErrCodeExtraction, "content extraction failed")
)

// Persistence errors: fatal for the current batch, never rolled back.
var (
	ErrBatchWriteFailed = NewDomainError(ErrCodePersistence, "failed to persist chunk batch")
)
