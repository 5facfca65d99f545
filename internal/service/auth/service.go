package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/repository"
	"github.com/splax/bookshelf/pkg/crypto"
	jwtpkg "github.com/splax/bookshelf/pkg/jwt"
)

// Identity is the verified subject of a bearer token.
type Identity struct {
	ID    int64
	Email string
	Role  domain.Role
}

// SignupInput carries the fields accepted at registration.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Surname  string
	Role     domain.Role
}

// Token is the result of a successful sign-in.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Service handles authentication workflows.
type Service struct {
	users  repository.UserRepository
	tokens *jwtpkg.Issuer
	logger *slog.Logger
	ttl    time.Duration

	hashSlots *semaphore.Weighted
	decoy     func() string
}

// Option customises a Service.
type Option func(*Service)

// WithHashConcurrency bounds how many password hashes run at once.
func WithHashConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.hashSlots = semaphore.NewWeighted(int64(n))
		}
	}
}

// New constructs a Service.
func New(users repository.UserRepository, tokens *jwtpkg.Issuer, ttl time.Duration, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		users:     users,
		tokens:    tokens,
		logger:    logger,
		ttl:       ttl,
		hashSlots: semaphore.NewWeighted(int64(runtime.NumCPU())),
	}
	// Hashed once, on first use, so unknown emails pay the same verify cost.
	s.decoy = sync.OnceValue(func() string {
		hash, err := crypto.HashPassword("decoy-password")
		if err != nil {
			return ""
		}
		return hash
	})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL reports the lifetime given to issued access tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

// Signup hashes the password and stores a new user.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	var hash string
	err := s.withHashSlot(ctx, func() error {
		var err error
		hash, err = crypto.HashPassword(in.Password)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.NewUser(in.Name, in.Surname, in.Email, hash, in.Role)
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConstraintViolation) {
			return nil, ErrDuplicateEmail
		}
		return nil, &PersistenceError{Op: "create user", Err: err}
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Signin checks credentials and issues an access token. An unknown email and
// a wrong password both yield ErrInvalidCredentials.
func (s *Service) Signin(ctx context.Context, email, password string) (Token, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Token{}, &PersistenceError{Op: "get user by email", Err: err}
	}

	encoded := s.decoy()
	if user != nil {
		encoded = user.PasswordHash
	}
	var match bool
	if err := s.withHashSlot(ctx, func() error {
		match = crypto.VerifyPassword(encoded, password)
		return nil
	}); err != nil {
		return Token{}, err
	}
	if user == nil || !match {
		s.logger.Info("sign-in rejected")
		return Token{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(jwtpkg.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}, s.ttl)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}

	if crypto.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}
	s.logger.Info("user signed in", "user_id", user.ID)
	return Token{AccessToken: token, ExpiresIn: s.ttl}, nil
}

// Authenticate verifies a bearer token without touching the user store.
func (s *Service) Authenticate(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("token rejected", "error", err)
		return Identity{}, ErrUnauthenticated
	}
	role := domain.Role(claims.Role)
	if !role.Valid() || claims.UserID <= 0 {
		s.logger.Debug("token rejected", "error", "unknown subject or role")
		return Identity{}, ErrUnauthenticated
	}
	return Identity{ID: claims.UserID, Email: claims.Email, Role: role}, nil
}

// Authorize succeeds when required is empty or contains the identity's role.
func (s *Service) Authorize(id Identity, required []domain.Role) error {
	if len(required) == 0 {
		return nil
	}
	for _, role := range required {
		if id.Role == role {
			return nil
		}
	}
	s.logger.Info("role check failed", "user_id", id.ID, "role", id.Role, "required", required)
	return ErrForbidden
}

func (s *Service) rehash(ctx context.Context, id int64, password string) {
	var hash string
	err := s.withHashSlot(ctx, func() error {
		var err error
		hash, err = crypto.HashPassword(password)
		return err
	})
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, id, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", id, "error", err)
		return
	}
	s.logger.Info("password rehashed", "user_id", id)
}

func (s *Service) withHashSlot(ctx context.Context, fn func() error) error {
	if err := s.hashSlots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for hash slot: %w", err)
	}
	defer s.hashSlots.Release(1)
	return fn()
}
