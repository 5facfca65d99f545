package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/service/auth"
)

// Authenticator verifies bearer tokens and checks roles.
type Authenticator interface {
	Authenticate(token string) (auth.Identity, error)
	Authorize(id auth.Identity, required []domain.Role) error
}

type identityContextKey struct{}

type contextSetter interface {
	SetContext(context.Context)
}

// Guard rejects requests without a valid bearer token or an allowed role.
type Guard struct {
	auth    Authenticator
	logger  *slog.Logger
	metrics *Metrics
}

// NewGuard constructs a Guard.
func NewGuard(a Authenticator, logger *slog.Logger, metrics *Metrics) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{auth: a, logger: logger, metrics: metrics}
}

// Require wraps next so it runs only for callers holding one of roles. With
// no roles any authenticated caller passes. The role set is fixed when
// Require is called.
func (g *Guard) Require(roles ...domain.Role) func(http.HandlerFunc) http.HandlerFunc {
	required := slices.Clone(roles)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			token, err := bearerToken(req.Header.Get("Authorization"))
			if err != nil {
				g.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
				g.metrics.recordAuthEvent("authenticate", "rejected")
				writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
				return
			}
			identity, err := g.auth.Authenticate(token)
			if err != nil {
				g.logger.Warn("token rejected", "path", req.URL.Path)
				g.metrics.recordAuthEvent("authenticate", "rejected")
				writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
				return
			}

			ctx := context.WithValue(req.Context(), identityContextKey{}, identity)
			if setter, ok := w.(contextSetter); ok {
				setter.SetContext(ctx)
			}

			if err := g.auth.Authorize(identity, required); err != nil {
				g.metrics.recordAuthEvent("authorize", "forbidden")
				writeError(w, http.StatusForbidden, auth.ErrForbidden.Error())
				return
			}
			next(w, req.WithContext(ctx))
		}
	}
}

// IdentityFromContext returns the identity stored by Guard.Require.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(auth.Identity)
	return id, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
