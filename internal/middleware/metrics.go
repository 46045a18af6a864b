package middleware

import (
	"net/http"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/metrics"
)

func MetricsMiddleware(collector *metrics.MetricsCollector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Capture Status Code
			rw := newInterceptor(w)

			next.ServeHTTP(rw, r)

			_, reason, _, _ := audit.FromContext(r.Context()).Values()
			collector.Record(time.Since(start), rw.statusCode, reason)
		})
	}
}
