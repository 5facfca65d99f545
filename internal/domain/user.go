package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the permission tier assigned to a user at registration.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// ParseRole maps a wire value to a Role. An empty value yields RoleViewer.
func ParseRole(value string) (Role, error) {
	switch Role(strings.TrimSpace(value)) {
	case "", RoleViewer:
		return RoleViewer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// User represents a registered account.
type User struct {
	ID           int64
	Name         string
	Surname      string
	Email        string
	PasswordHash string `json:"-"`
	Role         Role
	CreatedAt    time.Time
}

// NewUser builds an unsaved user. ID and CreatedAt are assigned by the store.
func NewUser(name, surname, email, passwordHash string, role Role) *User {
	if role == "" {
		role = RoleViewer
	}
	return &User{
		Name:         name,
		Surname:      surname,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
}
