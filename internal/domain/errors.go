package domain

import (
	"errors"
	"fmt"
)

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

// Is matches another DomainError by code and message so sentinel values work with errors.Is
// even after being wrapped with a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
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
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeInvalidOperation    = "INVALID_OPERATION"
	ErrCodeExtraction          = "EXTRACTION_ERROR"
	ErrCodeUnsupportedEncoding = "UNSUPPORTED_ENCODING"
	ErrCodeEmbeddingFailure    = "EMBEDDING_FAILURE"
	ErrCodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited         = "RATE_LIMITED"
)

// Validation errors
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeValidation, "unsupported document format")
	ErrEmptyQuery        = NewDomainError(ErrCodeValidation, "query is required")
	ErrDocumentTooLarge  = NewDomainError(ErrCodePayloadTooLarge, "document exceeds maximum upload size")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrDecisionNotFound = NewDomainError(ErrCodeNotFound, "chunking decision not found")
)

// Conflict errors
var (
	ErrDuplicateContent = NewDomainError(ErrCodeAlreadyExists, "document with identical content already exists")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrRateLimited   = NewDomainError(ErrCodeRateLimited, "rate limit exceeded")
)

// NewExtractionError reports an unreadable or corrupt source file
func NewExtractionError(format DocumentFormat, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, fmt.Sprintf("failed to extract text from %s document", format), err)
}

// NewUnsupportedEncodingError reports input that cannot be decoded as text
func NewUnsupportedEncodingError(reason string) *DomainError {
	return NewDomainError(ErrCodeUnsupportedEncoding, "unsupported text encoding: "+reason)
}

// NewEmbeddingFailure reports an embedding call that failed after retries
func NewEmbeddingFailure(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingFailure, "embedding generation failed", err)
}

// HasCode reports whether err wraps a DomainError with the given code
func HasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsExtractionError reports whether err is an ExtractionError
func IsExtractionError(err error) bool {
	return HasCode(err, ErrCodeExtraction)
}

// IsUnsupportedEncoding reports whether err is an UnsupportedEncodingError
func IsUnsupportedEncoding(err error) bool {
	return HasCode(err, ErrCodeUnsupportedEncoding)
}

// IsEmbeddingFailure reports whether err is an EmbeddingFailure
func IsEmbeddingFailure(err error) bool {
	return HasCode(err, ErrCodeEmbeddingFailure)
}
