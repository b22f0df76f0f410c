package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies scrape and download failures
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParse       ErrorType = "parse"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeNoExtension ErrorType = "no_extension"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries the failure type alongside the HTTP code, if any
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// NoExtension reports a filename whose extension cannot be determined.
// Callers recover from it by falling back to an alternate path segment.
func NoExtension(name string) *Error {
	return &Error{
		Type:    ErrorTypeNoExtension,
		Message: fmt.Sprintf("no determinable extension in %q", name),
	}
}

// IsNoExtension checks whether err is the distinguished no-extension failure
func IsNoExtension(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrorTypeNoExtension
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error
		return true
	case 429:
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
