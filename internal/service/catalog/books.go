package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/repository"
)

// BookInput holds the fields accepted when creating a book.
type BookInput struct {
	Title           string          `json:"title"`
	AuthorID        int64           `json:"author_id"`
	PublicationDate string          `json:"publication_date"`
	NumberOfPages   int             `json:"number_of_pages"`
	Language        domain.Language `json:"language"`
}

// BookService manages the book catalogue.
type BookService struct {
	books  repository.BookRepository
	logger *slog.Logger
}

// NewBookService returns a book service.
func NewBookService(books repository.BookRepository, logger *slog.Logger) BookService {
	return BookService{books: books, logger: logger}
}

// List returns books matching filter.
func (s BookService) List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.PublicationDate != "" {
		if err := validateDate(filter.PublicationDate); err != nil {
			return nil, err
		}
	}
	if filter.Language != "" && !filter.Language.Valid() {
		return nil, fmt.Errorf("%w: language must be en or fr", ErrInvalidInput)
	}
	books, err := s.books.ListBooks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Get returns one book.
func (s BookService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.books.GetBookByID(ctx, id)
	if err != nil {
		return nil, mapBookErr("get book", err)
	}
	return book, nil
}

// Create validates and stores a book.
func (s BookService) Create(ctx context.Context, in BookInput) (*domain.Book, error) {
	book := &domain.Book{
		Title:           strings.TrimSpace(in.Title),
		AuthorID:        in.AuthorID,
		PublicationDate: in.PublicationDate,
		NumberOfPages:   in.NumberOfPages,
		Language:        in.Language,
	}
	if err := validateBook(book); err != nil {
		return nil, err
	}
	if err := s.books.CreateBook(ctx, book); err != nil {
		return nil, mapBookErr("create book", err)
	}
	s.logger.Info("book created", "book_id", book.ID, "author_id", book.AuthorID)
	return book, nil
}

// Update applies patch to the book with the given id.
func (s BookService) Update(ctx context.Context, id int64, patch domain.BookPatch) (*domain.Book, error) {
	book, err := s.books.GetBookByID(ctx, id)
	if err != nil {
		return nil, mapBookErr("get book", err)
	}
	patch.Apply(book)
	book.Title = strings.TrimSpace(book.Title)
	if err := validateBook(book); err != nil {
		return nil, err
	}
	if err := s.books.UpdateBook(ctx, book); err != nil {
		return nil, mapBookErr("update book", err)
	}
	s.logger.Info("book updated", "book_id", book.ID)
	return book, nil
}

// Delete removes a book.
func (s BookService) Delete(ctx context.Context, id int64) error {
	if err := s.books.DeleteBook(ctx, id); err != nil {
		return mapBookErr("delete book", err)
	}
	s.logger.Info("book deleted", "book_id", id)
	return nil
}

func validateBook(b *domain.Book) error {
	switch {
	case b.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case b.AuthorID <= 0:
		return fmt.Errorf("%w: author_id is required", ErrInvalidInput)
	case b.NumberOfPages <= 0:
		return fmt.Errorf("%w: number_of_pages must be positive", ErrInvalidInput)
	case !b.Language.Valid():
		return fmt.Errorf("%w: language must be en or fr", ErrInvalidInput)
	}
	return validateDate(b.PublicationDate)
}

func validateDate(value string) error {
	if _, err := time.Parse(domain.PublicationDateLayout, value); err != nil {
		return fmt.Errorf("%w: publication_date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return nil
}

func mapBookErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrBookNotFound
	case errors.Is(err, repository.ErrInvalidReference):
		return ErrUnknownAuthor
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
