package catalog

import "errors"

var (
	// ErrInvalidInput prefixes every field validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownAuthor is returned when a book references a missing author.
	ErrUnknownAuthor = errors.New("unknown author")
	// ErrBookNotFound is returned when no book has the requested id.
	ErrBookNotFound = errors.New("book not found")
)
