package httpclient

import (
	"errors"

	clerrors "github.com/skymfe/corelib/internal/errors"
)

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a non-2xx response.
func StatusCode(err error) int {
	return clerrors.StatusCode(err)
}

// IsRetryable reports whether err is a request failure worth retrying:
// network errors, 408, 429 and 5xx responses.
func IsRetryable(err error) bool {
	var ce *clerrors.ClassifiedError
	return errors.As(err, &ce) && ce.Category == clerrors.Recoverable
}
