package gateway

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig enables bearer JWT auth on every POST route. A Server with
// a zero-value AuthConfig (empty SigningKey) performs no auth check.
type AuthConfig struct {
	SigningKey []byte
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	if len(s.auth.SigningKey) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return s.auth.SigningKey, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
