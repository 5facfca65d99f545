package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/repository"
)

// AuthorInput holds the fields accepted when creating an author.
type AuthorInput struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// AuthorService manages authors.
type AuthorService struct {
	authors repository.AuthorRepository
	logger  *slog.Logger
}

// NewAuthorService returns an author service.
func NewAuthorService(authors repository.AuthorRepository, logger *slog.Logger) AuthorService {
	return AuthorService{authors: authors, logger: logger}
}

// List returns every author.
func (s AuthorService) List(ctx context.Context) ([]domain.Author, error) {
	authors, err := s.authors.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	return authors, nil
}

// Create validates and stores an author.
func (s AuthorService) Create(ctx context.Context, in AuthorInput) (*domain.Author, error) {
	name := strings.TrimSpace(in.Name)
	surname := strings.TrimSpace(in.Surname)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if surname == "" {
		return nil, fmt.Errorf("%w: surname is required", ErrInvalidInput)
	}
	author := &domain.Author{Name: name, Surname: surname}
	if err := s.authors.CreateAuthor(ctx, author); err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	s.logger.Info("author created", "author_id", author.ID)
	return author, nil
}
