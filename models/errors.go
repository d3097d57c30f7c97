package models

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input rejected before any processing started.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ExtractionError reports that a PDF could not be decoded into page text.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from PDF: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ModelCallError reports a failed call to the completion service: timeout,
// non-2xx status, malformed payload or an empty choice list.
type ModelCallError struct {
	Err error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *ModelCallError) Unwrap() error {
	return e.Err
}

const internalErrorMessage = "Internal server error"

// UserMessage converts err into the single human-readable string shown at the
// outer boundary. Only typed domain errors expose their text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return extractionErr.Error()
	}
	var modelErr *ModelCallError
	if errors.As(err, &modelErr) {
		return modelErr.Error()
	}
	return internalErrorMessage
}
