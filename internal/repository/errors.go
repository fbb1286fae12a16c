package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located, or is not owned by the caller.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("repository: conflict")
	// ErrInvalidValue indicates a value was rejected by a column constraint such as numeric precision.
	ErrInvalidValue = errors.New("repository: invalid value")
)
