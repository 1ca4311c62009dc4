// Package errors classifies transport and protocol failures raised by the
// HTTP client handle so the retry loop can decide whether another attempt
// is worthwhile.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory determines how a failure is treated by the retry loop.
type ErrorCategory int

const (
	// Recoverable failures may succeed on another attempt.
	// Examples: 503 Service Unavailable, connection reset, 429.
	Recoverable ErrorCategory = iota

	// Irrecoverable failures are returned to the caller immediately.
	// Examples: 400 Bad Request, 401 Unauthorized, 409 Conflict.
	Irrecoverable
)

// String returns a human-readable representation of the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ClassifiedError wraps a request failure with categorization metadata.
type ClassifiedError struct {
	Category   ErrorCategory
	Method     string
	Target     string
	StatusCode int    // 0 for transport-level failures
	Body       string // truncated response body
	Underlying error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Method, e.Target, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Target, e.Underlying)
}

// Unwrap returns the underlying error for error chain compatibility.
func (e *ClassifiedError) Unwrap() error {
	return e.Underlying
}

// IsIrrecoverable reports whether err carries an Irrecoverable classification.
func IsIrrecoverable(err error) bool {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce.Category == Irrecoverable
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a
// classified HTTP failure.
func StatusCode(err error) int {
	var ce *ClassifiedError
	if stderrors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}
