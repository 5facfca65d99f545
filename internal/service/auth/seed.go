package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/splax/bookshelf/internal/domain"
)

// SeedUser is one entry of a seed file.
type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Surname  string `yaml:"surname"`
	Role     string `yaml:"role"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeedFile parses a YAML document of the form `users: [...]`.
func LoadSeedFile(path string) ([]SeedUser, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return doc.Users, nil
}

// Seed registers users through Signup. Existing emails are skipped and
// reported as not created.
func (s *Service) Seed(ctx context.Context, users []SeedUser) (int, error) {
	created := 0
	for i, u := range users {
		if u.Email == "" || u.Password == "" {
			return created, fmt.Errorf("seed user %d: email and password are required", i)
		}
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			return created, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		_, err = s.Signup(ctx, SignupInput{
			Email:    u.Email,
			Password: u.Password,
			Name:     u.Name,
			Surname:  u.Surname,
			Role:     role,
		})
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			s.logger.Info("seed user exists", "email", u.Email)
		case err != nil:
			return created, fmt.Errorf("seed user %s: %w", u.Email, err)
		default:
			created++
		}
	}
	return created, nil
}
