package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides typed access to the bookshelf API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:4000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// SignupInput is the registration payload.
type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Role     string `json:"role,omitempty"`
}

// User reflects API user payloads.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

// Token is the sign-in result. ExpiresIn is in seconds.
type Token struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// Identity is the caller as seen by the API.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, input SignupInput) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/signup", input, "", &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Signin exchanges credentials for an access token.
func (c *Client) Signin(ctx context.Context, email, password string) (Token, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var token Token
	if err := c.do(ctx, http.MethodPost, "/auth/signin", body, "", &token); err != nil {
		return Token{}, err
	}
	return token, nil
}

// Me returns the identity carried by token.
func (c *Client) Me(ctx context.Context, token string) (Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, token, &id); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Author is a catalogue author.
type Author struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAuthors returns every author.
func (c *Client) ListAuthors(ctx context.Context, token string) ([]Author, error) {
	var authors []Author
	if err := c.do(ctx, http.MethodGet, "/authors", nil, token, &authors); err != nil {
		return nil, err
	}
	return authors, nil
}

// CreateAuthor adds an author. Requires the admin role.
func (c *Client) CreateAuthor(ctx context.Context, token, name, surname string) (Author, error) {
	body := map[string]string{"name": name, "surname": surname}
	var author Author
	if err := c.do(ctx, http.MethodPost, "/authors", body, token, &author); err != nil {
		return Author{}, err
	}
	return author, nil
}

// Book is a catalogue entry.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	AuthorID        int64     `json:"author_id"`
	PublicationDate string    `json:"publication_date"`
	NumberOfPages   int       `json:"number_of_pages"`
	Language        string    `json:"language"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookInput is the payload for book creation.
type BookInput struct {
	Title           string `json:"title"`
	AuthorID        int64  `json:"author_id"`
	PublicationDate string `json:"publication_date"`
	NumberOfPages   int    `json:"number_of_pages"`
	Language        string `json:"language"`
}

// BookFilter narrows ListBooks. Empty fields are ignored.
type BookFilter struct {
	Search          string
	PublicationDate string
	Language        string
}

func (f BookFilter) query() string {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.PublicationDate != "" {
		q.Set("publication_date", f.PublicationDate)
	}
	if f.Language != "" {
		q.Set("language", f.Language)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListBooks returns books matching filter.
func (c *Client) ListBooks(ctx context.Context, token string, filter BookFilter) ([]Book, error) {
	var books []Book
	if err := c.do(ctx, http.MethodGet, "/books"+filter.query(), nil, token, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBook fetches one book.
func (c *Client) GetBook(ctx context.Context, token string, id int64) (Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/books/%d", id), nil, token, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// CreateBook adds a book. Requires the admin role.
func (c *Client) CreateBook(ctx context.Context, token string, input BookInput) (Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPost, "/books", input, token, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// UpdateBook applies the non-nil fields of patch. Requires the admin role.
func (c *Client) UpdateBook(ctx context.Context, token string, id int64, patch map[string]any) (Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/books/%d", id), patch, token, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// DeleteBook removes a book. Requires the admin role.
func (c *Client) DeleteBook(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/books/%d", id), nil, token, nil)
}
