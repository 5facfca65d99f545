package repository

import (
	"context"

	"github.com/splax/bookshelf/internal/domain"
)

// UserRepository persists users. CreateUser fails with an error matching
// ErrConstraintViolation when the email is already registered.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// AuthorRepository persists authors.
type AuthorRepository interface {
	CreateAuthor(ctx context.Context, author *domain.Author) error
	ListAuthors(ctx context.Context) ([]domain.Author, error)
}

// BookRepository persists books. Writes referencing a missing author fail
// with ErrInvalidReference.
type BookRepository interface {
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBookByID(ctx context.Context, id int64) (*domain.Book, error)
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error)
	UpdateBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, id int64) error
}
