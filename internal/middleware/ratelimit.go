// File: internal/middleware/ratelimit.go
package middleware

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/iyunix/go-voicechat/internal/metrics"
	"github.com/iyunix/go-voicechat/internal/ratelimit"
)

// RateLimitMiddleware limits requests per authenticated user, falling back
// to the client IP for anonymous requests.
func RateLimitMiddleware(limiter *ratelimit.MemoryRateLimiter, name string, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := "ip:" + ratelimit.GetClientIP(r)
			if userID, ok := UserIDFromContext(r.Context()); ok {
				identifier = fmt.Sprintf("user:%d", userID)
			}

			decision := limiter.Allow(identifier)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

			if !decision.Allowed {
				metrics.RecordRateLimited()
				logger.Warn("rate limited", "limiter", name, "identifier", identifier)

				retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"message":     "Too Many Attempts.",
					"retry_after": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
