package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// maxBodyInError bounds how much of a response body is kept for diagnostics.
const maxBodyInError = 512

// categoryForStatus maps HTTP status codes to error categories:
//   - 408 and 429 are recoverable
//   - any other 4xx is irrecoverable
//   - 5xx and unexpected codes are recoverable
func categoryForStatus(statusCode int) ErrorCategory {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return Recoverable
		default:
			return Irrecoverable
		}
	default:
		return Recoverable
	}
}

// NewHTTPError creates a classified error for a non-2xx response. The message
// carries the status line so callers that only print err see "409 Conflict".
func NewHTTPError(method, target string, statusCode int, body string) *ClassifiedError {
	if len(body) > maxBodyInError {
		body = body[:maxBodyInError]
	}
	return &ClassifiedError{
		Category:   categoryForStatus(statusCode),
		Method:     method,
		Target:     target,
		StatusCode: statusCode,
		Body:       body,
		Underlying: fmt.Errorf("%d %s", statusCode, http.StatusText(statusCode)),
	}
}

// NewNetworkError creates a classified error for transport-level failures.
// Context cancellation and deadline expiry are irrecoverable; everything else
// may be transient.
func NewNetworkError(method, target string, err error) *ClassifiedError {
	category := Recoverable
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		category = Irrecoverable
	}
	return &ClassifiedError{
		Category:   category,
		Method:     method,
		Target:     target,
		Underlying: fmt.Errorf("network error: %w", err),
	}
}

// NewDecodeError creates an irrecoverable error for a response body that could
// not be decoded into the caller's type.
func NewDecodeError(method, target string, err error) *ClassifiedError {
	return &ClassifiedError{
		Category:   Irrecoverable,
		Method:     method,
		Target:     target,
		Underlying: fmt.Errorf("decode response: %w", err),
	}
}
