package httpx

import (
	"errors"
	"net/http"

	"github.com/splax/bookshelf/internal/service/auth"
	"github.com/splax/bookshelf/internal/service/catalog"
)

const internalErrorMessage = "internal error"

// statusFor maps service errors to an HTTP status and client message.
// Unrecognised errors become 500 without exposing their text.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, auth.ErrDuplicateEmail.Error()
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, auth.ErrUnauthenticated.Error()
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, auth.ErrForbidden.Error()
	case errors.Is(err, catalog.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrUnknownAuthor):
		return http.StatusBadRequest, catalog.ErrUnknownAuthor.Error()
	case errors.Is(err, catalog.ErrBookNotFound):
		return http.StatusNotFound, catalog.ErrBookNotFound.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		var perr *auth.PersistenceError
		if errors.As(err, &perr) {
			r.logger.Error("persistence failure", "op", perr.Op, "error", perr.Err, "path", req.URL.Path)
		} else {
			r.logger.Error("request failed", "error", err, "path", req.URL.Path)
		}
	}
	writeError(w, status, msg)
}
