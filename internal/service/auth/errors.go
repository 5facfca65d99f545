package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Signin for an unknown email and for
	// a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrDuplicateEmail is returned by Signup when the email is already registered.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrUnauthenticated is returned when a bearer token is missing or fails verification.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when an authenticated caller lacks every required role.
	ErrForbidden = errors.New("insufficient role")
)

// PersistenceError reports a user store failure that is not a constraint
// violation. The underlying cause stays reachable through errors.Is/As.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
