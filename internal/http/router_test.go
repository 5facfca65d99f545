package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/bookshelf/internal/domain"
)

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) signin(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/signin", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(3600), out.ExpiresIn)
	return out.AccessToken
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["error"]
}

func TestSignupSigninAndRoleChecks(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": "Str0ng!Pass", "name": "Alice", "surname": "Liddell",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "viewer", created["role"])
	assert.Equal(t, "alice@example.com", created["email"])
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "Str0ng!Pass")

	rec = env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "alice@example.com", "password": "Other1!Pass", "name": "Alice", "surname": "Again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already in use", errorBody(t, rec))

	wrong := env.do(t, http.MethodPost, "/auth/signin", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	unknown := env.do(t, http.MethodPost, "/auth/signin", "", map[string]string{"email": "ghost@example.com", "password": "Str0ng!Pass"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, "invalid email or password", errorBody(t, wrong))

	token := env.signin(t, "alice@example.com", "Str0ng!Pass")

	rec = env.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":`+strconv.FormatInt(int64(created["id"].(float64)), 10)+`,"email":"alice@example.com","role":"viewer"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/books", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/books", token, map[string]any{"title": "Dune"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient role", errorBody(t, rec))

	rec = env.do(t, http.MethodDelete, "/books/1", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminManagesCatalogue(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "admin@example.com", "password": "Adm1n!Pass", "name": "Ada", "surname": "Lovelace", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := env.signin(t, "admin@example.com", "Adm1n!Pass")

	rec = env.do(t, http.MethodPost, "/authors", token, map[string]string{"name": "Frank", "surname": "Herbert"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var author domain.Author
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &author))

	rec = env.do(t, http.MethodPost, "/books", token, map[string]any{
		"title": "Dune", "author_id": author.ID, "publication_date": "1965-08-01", "number_of_pages": 412, "language": "en",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var book domain.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	bookPath := "/books/" + strconv.FormatInt(book.ID, 10)

	rec = env.do(t, http.MethodPost, "/books", token, map[string]any{
		"title": "Orphan", "author_id": 9999, "publication_date": "2000-01-01", "number_of_pages": 10, "language": "fr",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown author", errorBody(t, rec))

	rec = env.do(t, http.MethodGet, "/books?language=en", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var books []domain.Book
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
	assert.Len(t, books, 1)

	rec = env.do(t, http.MethodGet, "/books?language=de", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, bookPath, token, map[string]any{"number_of_pages": 500})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"number_of_pages":500`)

	rec = env.do(t, http.MethodGet, "/books/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, bookPath, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, bookPath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/authors", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Herbert")
}

func TestGuardRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	expired, err := env.issuer.Issue(jwtClaims(1, "admin"), -time.Minute)
	require.NoError(t, err)
	valid, err := env.issuer.Issue(jwtClaims(1, "admin"), time.Hour)
	require.NoError(t, err)

	tampered := []byte(valid)
	dot := bytes.IndexByte(tampered, '.')
	if tampered[dot+2] == 'A' {
		tampered[dot+2] = 'B'
	} else {
		tampered[dot+2] = 'A'
	}

	for name, header := range map[string]string{
		"missing":  "",
		"scheme":   "Basic dXNlcjpwYXNz",
		"no token": "Bearer",
		"garbage":  "Bearer not.a.token",
		"tampered": "Bearer " + string(tampered),
		"expired":  "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/books", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "authentication required", errorBody(t, rec))
		})
	}
}

func TestBearerSchemeIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.issuer.Issue(jwtClaims(7, "viewer"), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupValidationMessages(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "weak@example.com", "password": "password", "name": "W", "surname": "P",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, weakPasswordMessage, errorBody(t, rec))

	rec = env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "Str0ng!Pass", "name": "W", "surname": "P",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", errorBody(t, rec))
}

func TestSignupIsRateLimitedPerIP(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < rateLimitSignup; i++ {
		rec := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "bad"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, strconv.Itoa(rateLimitSignup-i-1), rec.Header().Get("X-RateLimit-Remaining"))
	}
	rec := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "bad"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	metrics := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `bookshelf_api_rate_limit_hits_total{key="ip",route="POST /auth/signup"} 1`)
	assert.Contains(t, metrics.Body.String(), `bookshelf_api_auth_events_total{event="signup",outcome="invalid"} 5`)
}

func TestSigninLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	env := newTestEnv(t)
	body := []byte(`{"email":"alice@example.com","password":"wrong"}`)
	limited := 0
	for i := 0; i < 3*rateLimitSignin; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", bytes.NewReader(body))
		req.RemoteAddr = "198.51.100.7:40000"
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 2*rateLimitSignin, limited)
}

func TestSigninLimitHonoursTrustedProxy(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.TrustedProxies = []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	})
	body := []byte(`{"email":"alice@example.com","password":"wrong"}`)
	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/signin", bytes.NewReader(body))
		req.RemoteAddr = "10.0.0.2:40000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec.Code
	}
	for i := 0; i < rateLimitSignin; i++ {
		require.Equal(t, http.StatusUnauthorized, send("203.0.113.9"))
	}
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.9"))
	assert.Equal(t, http.StatusUnauthorized, send("203.0.113.10"))
}

func TestHealthzReportsDatabase(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.DBHealth = func(context.Context) error { return errors.New("connection refused") }
	})
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	healthy := newTestEnv(t, func(d *Deps) {
		d.DBHealth = func(context.Context) error { return nil }
	})
	rec = healthy.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditEchoesRequestID(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestStatusForMapsServiceErrors(t *testing.T) {
	status, msg := statusFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", msg)
}
