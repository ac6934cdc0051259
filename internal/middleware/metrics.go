package middleware

import (
	"net/http"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/metrics"
)

// Metrics records request count and latency per method, route and status.
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			recorder.ObserveHTTPRequest(r.Method, routePattern(r), wrapped.status, time.Since(start))
		})
	}
}
