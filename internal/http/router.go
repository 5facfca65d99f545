package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/service/auth"
	"github.com/splax/bookshelf/internal/service/catalog"
)

// AuthService is the authentication surface used by the router.
type AuthService interface {
	Authenticator
	Signup(ctx context.Context, in auth.SignupInput) (*domain.User, error)
	Signin(ctx context.Context, email, password string) (auth.Token, error)
}

// Deps groups the collaborators of a Router.
type Deps struct {
	Logger   *slog.Logger
	Auth     AuthService
	Authors  catalog.AuthorService
	Books    catalog.BookService
	Limiter  RateLimiter
	Metrics  *Metrics
	DBHealth func(context.Context) error

	// TrustedProxies lists peers whose X-Forwarded-For header is honoured.
	TrustedProxies []netip.Prefix
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	auth     AuthService
	authors  catalog.AuthorService
	books    catalog.BookService
	guard    *Guard
	limiter  RateLimiter
	metrics  *Metrics
	dbHealth func(context.Context) error

	trustedProxies []netip.Prefix
}

const (
	rateWindowDefault  = time.Minute
	rateLimitSignup    = 5
	rateLimitSignin    = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	healthCheckTimeout = 2 * time.Second
)

var (
	anyRole    = []domain.Role{domain.RoleAdmin, domain.RoleViewer}
	adminsOnly = []domain.Role{domain.RoleAdmin}
)

// route is one entry of the static route table. A nil roles slice on a
// guarded route admits any authenticated caller.
type route struct {
	pattern string
	public  bool
	roles   []domain.Role
	limit   int
	handler http.HandlerFunc
}

// NewRouter assembles routes with dependencies.
func NewRouter(deps Deps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		auth:     deps.Auth,
		authors:  deps.Authors,
		books:    deps.Books,
		limiter:  deps.Limiter,
		metrics:  deps.Metrics,
		dbHealth: deps.DBHealth,

		trustedProxies: slices.Clone(deps.TrustedProxies),
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.guard = NewGuard(deps.Auth, logger, deps.Metrics)
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) routes() []route {
	return []route{
		{pattern: "GET /healthz", public: true, handler: r.handleHealthz},
		{pattern: "POST /auth/signup", public: true, limit: rateLimitSignup, handler: r.handleSignup},
		{pattern: "POST /auth/signin", public: true, limit: rateLimitSignin, handler: r.handleSignin},
		{pattern: "GET /auth/me", handler: r.handleMe},
		{pattern: "GET /authors", roles: anyRole, limit: rateLimitUserRead, handler: r.handleListAuthors},
		{pattern: "POST /authors", roles: adminsOnly, limit: rateLimitUserWrite, handler: r.handleCreateAuthor},
		{pattern: "GET /books", roles: anyRole, limit: rateLimitUserRead, handler: r.handleListBooks},
		{pattern: "POST /books", roles: adminsOnly, limit: rateLimitUserWrite, handler: r.handleCreateBook},
		{pattern: "GET /books/{id}", roles: anyRole, limit: rateLimitUserRead, handler: r.handleGetBook},
		{pattern: "PATCH /books/{id}", roles: adminsOnly, limit: rateLimitUserWrite, handler: r.handleUpdateBook},
		{pattern: "DELETE /books/{id}", roles: adminsOnly, limit: rateLimitUserWrite, handler: r.handleDeleteBook},
	}
}

func (r *Router) register() {
	for _, rt := range r.routes() {
		h := rt.handler
		if rt.public {
			h = r.withRateLimit(rt.limit, rateWindowDefault, r.rateLimitKeyIP)(h)
		} else {
			h = r.guard.Require(rt.roles...)(r.withRateLimit(rt.limit, rateWindowDefault, rateLimitKeyUser)(h))
		}
		r.mux.HandleFunc(rt.pattern, r.audit(h))
	}
	if r.metrics != nil {
		r.mux.Handle("GET /metrics", r.metrics.Handler())
	}
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			r.logger.Warn("database health check failed", "error", err)
			components["database"] = map[string]any{"status": "down"}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (r *Router) audit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		requestID := strings.TrimSpace(req.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		routeLabel := req.Pattern
		if routeLabel == "" {
			routeLabel = "unmatched"
		}
		r.metrics.recordRequest(req.Method, routeLabel, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", requestID,
		}
		if ip := clientIP(req, r.trustedProxies); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if id, ok := IdentityFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", id.ID, "role", string(id.Role))
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}
