package postgres

import (
	"context"

	"github.com/samber/oops"

	"github.com/splax/bookshelf/internal/domain"
)

// CreateAuthor inserts an author and fills in its ID and CreatedAt.
func (r *Repository) CreateAuthor(ctx context.Context, author *domain.Author) error {
	const query = `INSERT INTO authors (name, surname) VALUES ($1, $2) RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, query, author.Name, author.Surname).Scan(&author.ID, &author.CreatedAt); err != nil {
		return oops.Code("AUTHOR_CREATE_FAILED").
			With("operation", "insert author").
			Wrap(classify(err))
	}
	return nil
}

// ListAuthors returns all authors ordered by id.
func (r *Repository) ListAuthors(ctx context.Context) ([]domain.Author, error) {
	const query = `SELECT id, name, surname, created_at FROM authors ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, oops.Code("AUTHOR_LIST_FAILED").With("operation", "list authors").Wrap(err)
	}
	defer rows.Close()

	authors := make([]domain.Author, 0)
	for rows.Next() {
		var a domain.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Surname, &a.CreatedAt); err != nil {
			return nil, oops.Code("AUTHOR_LIST_FAILED").With("operation", "scan author").Wrap(err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("AUTHOR_LIST_FAILED").With("operation", "iterate authors").Wrap(err)
	}
	return authors, nil
}
