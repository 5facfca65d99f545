package httpx

import (
	"errors"
	"net/http"

	"github.com/splax/bookshelf/internal/domain"
	"github.com/splax/bookshelf/internal/service/auth"
)

type userResponse struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Surname string      `json:"surname"`
	Email   string      `json:"email"`
	Role    domain.Role `json:"role"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type identityResponse struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var payload signupRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	input, err := payload.validate()
	if err != nil {
		r.metrics.recordAuthEvent("signup", "invalid")
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	user, err := r.auth.Signup(req.Context(), input)
	if err != nil {
		outcome := "error"
		if errors.Is(err, auth.ErrDuplicateEmail) {
			outcome = "duplicate"
		}
		r.metrics.recordAuthEvent("signup", outcome)
		r.writeServiceError(w, req, err)
		return
	}
	r.metrics.recordAuthEvent("signup", "success")
	writeJSON(w, http.StatusCreated, userResponse{
		ID:      user.ID,
		Name:    user.Name,
		Surname: user.Surname,
		Email:   user.Email,
		Role:    user.Role,
	})
}

func (r *Router) handleSignin(w http.ResponseWriter, req *http.Request) {
	var payload signinRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := payload.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, err := r.auth.Signin(req.Context(), payload.Email, payload.Password)
	if err != nil {
		outcome := "error"
		if errors.Is(err, auth.ErrInvalidCredentials) {
			outcome = "rejected"
		}
		r.metrics.recordAuthEvent("signin", outcome)
		r.writeServiceError(w, req, err)
		return
	}
	r.metrics.recordAuthEvent("signin", "success")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		ExpiresIn:   int64(token.ExpiresIn.Seconds()),
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	id, ok := IdentityFromContext(req.Context())
	if !ok {
		r.logger.Error("identity missing from guarded request", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, internalErrorMessage)
		return
	}
	writeJSON(w, http.StatusOK, identityResponse{ID: id.ID, Email: id.Email, Role: id.Role})
}
