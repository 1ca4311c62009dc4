package fetch

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// MissingContextError is returned when a primitive or handle is requested
// without a live Provider. It is a setup defect and is never stored in State.
type MissingContextError struct {
	Reason string
}

func (e *MissingContextError) Error() string {
	return "fetch: no provider in scope: " + e.Reason
}

// Is makes errors.Is(err, ErrMissingContext) match every MissingContextError.
func (e *MissingContextError) Is(target error) bool {
	_, ok := target.(*MissingContextError)
	return ok
}

var (
	// ErrMissingContext matches any *MissingContextError.
	ErrMissingContext error = &MissingContextError{Reason: "provider is nil"}

	// ErrEmptyTarget is returned when a primitive is given an empty target.
	ErrEmptyTarget = errors.New("fetch: target cannot be empty")

	// ErrClosed is returned by Refetch and Mutate after Close.
	ErrClosed = errors.New("fetch: primitive closed")
)

// UnsupportedMethodError reports a verb the primitive cannot dispatch. It is
// raised before any call reaches the handle.
type UnsupportedMethodError struct {
	Method Method
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported HTTP method: %s", e.Method)
}

// errUnknown is the message used when the handle panics with a non-error value.
const errUnknown = "an error occurred"

// normalizePanic turns a recovered value into an error carrying a stack.
func normalizePanic(r interface{}) error {
	if err, ok := r.(error); ok {
		return pkgerrors.WithStack(err)
	}
	return pkgerrors.New(errUnknown)
}
