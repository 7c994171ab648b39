package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error taxonomy. Only ErrUnreadableDocument and
// ErrAllProvidersFailed are fatal to a run; everything else degrades the
// result and is reported through missing fields / warnings.
var (
	ErrUnreadableDocument  = errors.New("unreadable document")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrAllProvidersFailed  = errors.New("all providers exhausted")
	ErrRateLimited         = errors.New("rate limited")
	ErrMalformedResponse   = errors.New("malformed provider response")
	ErrAmbiguousProperty   = errors.New("ambiguous property reference")
	ErrUnresolvedProperty  = errors.New("unresolved property reference")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("resource not found")
	ErrInternal            = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Fatal reports whether err ends an extraction run outright.
func Fatal(err error) bool {
	return errors.Is(err, ErrUnreadableDocument) || errors.Is(err, ErrAllProvidersFailed)
}
