// File: internal/middleware/logger.go
package middleware

import (
	"net/http"
	"time"
)

// LoggingMiddleware logs one line per request once it has been handled.
func LoggingMiddleware(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			kv := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.statusCode,
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			}
			if userID, ok := UserIDFromContext(r.Context()); ok {
				kv = append(kv, "user_id", userID)
			}

			switch {
			case rec.statusCode >= 500:
				logger.Error("request", kv...)
			case rec.statusCode >= 400:
				logger.Warn("request", kv...)
			default:
				logger.Info("request", kv...)
			}
		})
	}
}
