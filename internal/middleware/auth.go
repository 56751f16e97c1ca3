// File: internal/middleware/auth.go
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iyunix/go-voicechat/internal/auth"
)

// NewJWTMiddleware requires a valid "Authorization: Bearer <token>" header
// and stores the token's user ID in the request context.
func NewJWTMiddleware(secretKey []byte, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthenticated(w)
				return
			}

			userID, err := auth.ValidateToken(token, secretKey)
			if err != nil {
				logger.Debug("rejected bearer token", "path", r.URL.Path, "error", err)
				unauthenticated(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unauthenticated."})
}
