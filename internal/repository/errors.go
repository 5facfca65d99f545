package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrConstraintViolation indicates a uniqueness rule was broken on write.
	ErrConstraintViolation = errors.New("repository: constraint violation")
	// ErrInvalidReference indicates a write referenced a row that does not exist.
	ErrInvalidReference = errors.New("repository: invalid reference")
)
