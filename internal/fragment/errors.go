package fragment

import (
	"errors"
	"fmt"
)

var (
	// ErrStopped is returned by Start when Stop won the race with it, or
	// when a stopped subscription is started again.
	ErrStopped = errors.New("subscription stopped")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("subscription already started")
)

// RequestErrorCode categorizes request errors.
type RequestErrorCode string

const (
	// ErrCodeIdentityUnresolved indicates the store could not identify the
	// record the caller asked for.
	ErrCodeIdentityUnresolved RequestErrorCode = "IDENTITY_UNRESOLVED"

	// ErrCodeFragmentUnresolved indicates the store could not resolve the
	// fragment within the document.
	ErrCodeFragmentUnresolved RequestErrorCode = "FRAGMENT_UNRESOLVED"

	// ErrCodeInvalidOptions indicates the options are incomplete.
	ErrCodeInvalidOptions RequestErrorCode = "INVALID_OPTIONS"
)

// RequestError reports a request that cannot be built. No diff or watch
// is attempted for it.
type RequestError struct {
	Code    RequestErrorCode
	Message string

	// Err is the store error behind the failure, if any.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying store error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsRequestError returns true if err is a RequestError with the given code.
// Uses errors.As to handle wrapped errors.
func IsRequestError(err error, code RequestErrorCode) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
