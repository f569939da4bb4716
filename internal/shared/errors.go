package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates user input violating a field constraint.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the request conflicts with current state.
	ErrConflict = errors.New("conflict")
)
