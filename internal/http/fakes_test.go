package httpx

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/repository"
	"github.com/splax/bookshelf/internal/service/auth"
	"github.com/splax/bookshelf/internal/service/catalog"
	jwtpkg "github.com/splax/bookshelf/pkg/jwt"
)

// memStore is an in-memory stand-in for the postgres repository.
type memStore struct {
	mu      sync.Mutex
	users   map[string]domain.User
	authors []domain.Author
	books   map[int64]domain.Book
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{users: map[string]domain.User{}, books: map[int64]domain.Book{}}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return repository.ErrConstraintViolation
	}
	u.ID = m.id()
	u.CreatedAt = time.Now().UTC()
	m.users[u.Email] = *u
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) UpdatePasswordHash(context.Context, int64, string) error { return nil }

func (m *memStore) CreateAuthor(_ context.Context, a *domain.Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	m.authors = append(m.authors, *a)
	return nil
}

func (m *memStore) ListAuthors(context.Context) ([]domain.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Author(nil), m.authors...), nil
}

func (m *memStore) hasAuthor(id int64) bool {
	for _, a := range m.authors {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (m *memStore) CreateBook(_ context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasAuthor(b.AuthorID) {
		return repository.ErrInvalidReference
	}
	b.ID = m.id()
	m.books[b.ID] = *b
	return nil
}

func (m *memStore) GetBookByID(_ context.Context, id int64) (*domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) ListBooks(_ context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Book
	for _, b := range m.books {
		if filter.Language != "" && b.Language != filter.Language {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memStore) UpdateBook(_ context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[b.ID]; !ok {
		return repository.ErrNotFound
	}
	m.books[b.ID] = *b
	return nil
}

func (m *memStore) DeleteBook(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	router  *Router
	store   *memStore
	authSvc *auth.Service
	issuer  *jwtpkg.Issuer
	metrics *Metrics
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	store := newMemStore()
	issuer, err := jwtpkg.NewIssuer("router-test-secret")
	require.NoError(t, err)
	logger := discardLogger()
	authSvc := auth.New(store, issuer, time.Hour, logger)
	metrics := NewMetrics()
	deps := Deps{
		Logger:  logger,
		Auth:    authSvc,
		Authors: catalog.NewAuthorService(store, logger),
		Books:   catalog.NewBookService(store, logger),
		Metrics: metrics,
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	router := NewRouter(deps)
	t.Cleanup(router.Close)
	return &testEnv{router: router, store: store, authSvc: authSvc, issuer: issuer, metrics: metrics}
}
