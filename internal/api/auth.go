package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/eduquest/eduquest/internal/auth"
	"github.com/eduquest/eduquest/internal/storage"
)

type ctxKey int

const userKey ctxKey = 0

// BearerAuth guards service-level endpoints with a static API token.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionAuth resolves the bearer token as a user session and stores the
// user in the request context.
func SessionAuth(mgr *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpError(w, http.StatusUnauthorized, "authentication_error", "missing bearer token")
				return
			}
			u, err := mgr.Validate(token)
			if err != nil {
				if errors.Is(err, auth.ErrSessionExpired) {
					httpError(w, http.StatusUnauthorized, "authentication_error", "session expired or invalid")
					return
				}
				httpError(w, http.StatusInternalServerError, "api_error", "validating session: %v", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

// requestUser returns the session user resolved by SessionAuth.
func requestUser(r *http.Request) (storage.User, bool) {
	u, ok := r.Context().Value(userKey).(storage.User)
	return u, ok
}
