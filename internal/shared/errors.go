package shared

import (
	"errors"
	"fmt"
)

// RequestError is used when we want a specific error message and StatusCode.
// Sane defaults are listed below. For validation failures that need to name
// the violated field, build one with ValidationError and the handler returns
// the exact message inside the request error to the client.
type RequestError struct {
	StatusCode int
	Err        error
}

func (r *RequestError) Error() string {
	return r.Err.Error()
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

// ValidationError is a 400 naming the first violated constraint.
func ValidationError(format string, args ...any) *RequestError {
	return &RequestError{StatusCode: 400, Err: fmt.Errorf(format, args...)}
}

var (
	ErrInvalidJSON   = &RequestError{Err: errors.New("invalid JSON body"), StatusCode: 400}
	ErrEmptyMessages = &RequestError{Err: errors.New("prompt or messages required: no message with non-empty content"), StatusCode: 400}

	ErrInternalServerError = &RequestError{Err: errors.New("internal server error"), StatusCode: 500}
)
