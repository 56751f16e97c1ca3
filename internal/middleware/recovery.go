// File: internal/middleware/recovery.go
package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
)

// RecoverPanic turns a handler panic into a 500 response.
func RecoverPanic(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic recovered", "error", err, "path", r.URL.Path, "stack", string(debug.Stack()))

					w.Header().Set("Connection", "close")
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"message": "Server Error"})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
