package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RequestMetrics returns a middleware that reports every completed request
// to the given observer. The route label uses the matched chi pattern, not
// the raw path, to keep label cardinality bounded.
func RequestMetrics(observe func(method, route string, status int, seconds float64)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			observe(r.Method, routePattern(r), wrapped.status, time.Since(start).Seconds())
		})
	}
}

// routePattern resolves the chi route pattern that matched the request,
// e.g. "/api/v1/tasks/{id}". Falls back to the raw path for unmatched
// requests (404s) so they still show up, grouped under one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
