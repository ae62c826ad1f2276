package models

import "errors"

var (
	// ErrInvalidInput marks a request or record missing a required field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDependencyUnavailable marks a failed database or mail call. It is
	// logged where it happens and never reaches the caller.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrInternal marks anything unexpected.
	ErrInternal = errors.New("internal error")
)
