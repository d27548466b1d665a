package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eduquest/eduquest/internal/auth"
	"github.com/eduquest/eduquest/internal/storage"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	// Identifier is a username or an email address.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func handleRegister(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		u, err := deps.Auth.Register(req.Username, req.Email, req.Password)
		switch {
		case errors.Is(err, auth.ErrWeakPassword):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		case errors.Is(err, storage.ErrDuplicate):
			httpError(w, http.StatusConflict, "invalid_request_error", "username or email already taken")
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "registering user: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"user_id":  u.ID,
			"username": u.Username,
		})
	}
}

func handleLogin(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		u, sess, err := deps.Auth.Login(req.Identifier, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httpError(w, http.StatusUnauthorized, "authentication_error", "invalid credentials")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "logging in: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"token":      sess.Token,
			"user_id":    u.ID,
			"expires_at": sess.ExpiresAt.Format(time.RFC3339),
		})
	}
}
