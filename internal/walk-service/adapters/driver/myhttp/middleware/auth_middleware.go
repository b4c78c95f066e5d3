package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"pawwalk/internal/walk-service/adapters/driver/myhttp/handlers"
)

// AuthMiddleware guards the overlay with a shared bearer token. An empty
// token leaves the overlay open.
type AuthMiddleware struct {
	token string
}

func NewAuthMiddleware(token string) *AuthMiddleware {
	return &AuthMiddleware{
		token: token,
	}
}

func (am *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	if am.token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			// browsers cannot set headers on a websocket upgrade
			tokenString = r.URL.Query().Get("access_token")
		}
		if tokenString == "" {
			handlers.JsonError(w, http.StatusUnauthorized, fmt.Errorf("missing token"))
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(tokenString), []byte(am.token)) != 1 {
			handlers.JsonError(w, http.StatusUnauthorized, fmt.Errorf("invalid token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
