package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// HTTPMetrics records duration and count for every request. The path label
// uses the route pattern when the mux provides one, falling back to the raw
// path, to keep label cardinality bounded.
func HTTPMetrics(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if pattern := r.Pattern; pattern != "" {
				path = pattern
			}

			m.ObserveHTTPRequest(
				r.Method,
				path,
				strconv.Itoa(rw.statusCode),
				time.Since(start).Seconds(),
			)
		})
	}
}
