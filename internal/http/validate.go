package httpx

import (
	"errors"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/service/auth"
)

const minPasswordLength = 8

const weakPasswordMessage = "Password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, one number, and one symbol."

var (
	errInvalidEmail = errors.New("a valid email address is required")
	errWeakPassword = errors.New("password does not meet the strength policy")
	errMissingName  = errors.New("name and surname are required")
	errInvalidRole  = errors.New("role must be admin or viewer")
	errMissingLogin = errors.New("email and password are required")
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Role     string `json:"role"`
}

func (p signupRequest) validate() (auth.SignupInput, error) {
	email := strings.TrimSpace(p.Email)
	if !validEmail(email) {
		return auth.SignupInput{}, errInvalidEmail
	}
	if !strongPassword(p.Password) {
		return auth.SignupInput{}, errWeakPassword
	}
	name, surname := strings.TrimSpace(p.Name), strings.TrimSpace(p.Surname)
	if name == "" || surname == "" {
		return auth.SignupInput{}, errMissingName
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		return auth.SignupInput{}, errInvalidRole
	}
	return auth.SignupInput{
		Email:    email,
		Password: p.Password,
		Name:     name,
		Surname:  surname,
		Role:     role,
	}, nil
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validationMessage is the client-facing text for a request validation error.
func validationMessage(err error) string {
	if errors.Is(err, errWeakPassword) {
		return weakPasswordMessage
	}
	return err.Error()
}

func (p signinRequest) validate() error {
	if strings.TrimSpace(p.Email) == "" || p.Password == "" {
		return errMissingLogin
	}
	return nil
}

// validEmail accepts a bare address only, without display name or brackets.
func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

func strongPassword(value string) bool {
	if utf8.RuneCountInString(value) < minPasswordLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
