package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/repository"
)

const bookColumns = `b.id, b.title, b.author_id, to_char(b.publication_date, 'YYYY-MM-DD'), b.number_of_pages, b.language, b.created_at, b.updated_at`

// CreateBook inserts a book and fills in its ID and timestamps.
func (r *Repository) CreateBook(ctx context.Context, book *domain.Book) error {
	const query = `INSERT INTO books (title, author_id, publication_date, number_of_pages, language)
		VALUES ($1, $2, CAST($3::text AS date), $4, $5)
		RETURNING id, created_at, updated_at`
	row := r.pool.QueryRow(ctx, query, book.Title, book.AuthorID, book.PublicationDate, book.NumberOfPages, string(book.Language))
	if err := row.Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt); err != nil {
		return oops.Code("BOOK_CREATE_FAILED").
			With("operation", "insert book").
			With("author_id", book.AuthorID).
			Wrap(classify(err))
	}
	return nil
}

// GetBookByID fetches a single book.
func (r *Repository) GetBookByID(ctx context.Context, id int64) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books b WHERE b.id = $1`
	book, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, oops.Code("BOOK_GET_FAILED").With("operation", "get book").With("book_id", id).Wrap(err)
	}
	return book, nil
}

// ListBooks returns books matching filter ordered by id.
func (r *Repository) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	query, args := buildListBooksQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, oops.Code("BOOK_LIST_FAILED").With("operation", "list books").Wrap(err)
	}
	defer rows.Close()

	books := make([]domain.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, oops.Code("BOOK_LIST_FAILED").With("operation", "scan book").Wrap(err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("BOOK_LIST_FAILED").With("operation", "iterate books").Wrap(err)
	}
	return books, nil
}

// UpdateBook overwrites the mutable columns of a book.
func (r *Repository) UpdateBook(ctx context.Context, book *domain.Book) error {
	const query = `UPDATE books
		SET title = $2, author_id = $3, publication_date = CAST($4::text AS date),
			number_of_pages = $5, language = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	row := r.pool.QueryRow(ctx, query, book.ID, book.Title, book.AuthorID, book.PublicationDate, book.NumberOfPages, string(book.Language))
	if err := row.Scan(&book.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return oops.Code("BOOK_UPDATE_FAILED").
			With("operation", "update book").
			With("book_id", book.ID).
			Wrap(classify(err))
	}
	return nil
}

// DeleteBook removes a book.
func (r *Repository) DeleteBook(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return oops.Code("BOOK_DELETE_FAILED").With("operation", "delete book").With("book_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func buildListBooksQuery(filter domain.BookFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(b.title ILIKE $%d OR a.name ILIKE $%d OR a.surname ILIKE $%d)", n, n, n))
	}
	if filter.PublicationDate != "" {
		args = append(args, filter.PublicationDate)
		clauses = append(clauses, fmt.Sprintf("b.publication_date = CAST($%d::text AS date)", len(args)))
	}
	if filter.Language != "" {
		args = append(args, string(filter.Language))
		clauses = append(clauses, fmt.Sprintf("b.language = $%d", len(args)))
	}
	query := `SELECT ` + bookColumns + ` FROM books b JOIN authors a ON a.id = b.author_id`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY b.id`
	return query, args
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	var (
		b        domain.Book
		language string
	)
	if err := row.Scan(&b.ID, &b.Title, &b.AuthorID, &b.PublicationDate, &b.NumberOfPages, &language, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Language = domain.Language(language)
	return &b, nil
}
