// File: internal/middleware/metrics.go
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-voicechat/internal/metrics"
)

// MetricsMiddleware records request counts and durations per route template.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		metrics.RecordRequest(r.Method, routeTemplate(r), strconv.Itoa(rec.statusCode), time.Since(start).Seconds())
	})
}

// routeTemplate keeps label cardinality bounded by using the mux template
// instead of the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
