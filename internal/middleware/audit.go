package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/model"
	"github.com/raakeshmj/coreenginedb/internal/service"
)

// AuditMiddleware writes one activity entry per request after the response
// is complete. Handlers add user, reason and size through the request's
// audit.Trail.
func AuditMiddleware(logger audit.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Capture Response Status
			rw := newInterceptor(w)
			trail := &audit.Trail{}
			r = r.WithContext(audit.WithTrail(r.Context(), trail))

			defer func() {
				user, reason, size, sized := trail.Values()
				if !sized {
					size = rw.bytes
				}
				entry := model.Activity{
					Timestamp: model.Timestamp(start),
					Method:    r.Method,
					Path:      r.URL.Path,
					Status:    rw.statusCode,
					Size:      size,
					User:      user,
					IP:        service.ClientIP(r),
					Reason:    reason,
				}
				// The entry is written even if the client has gone away.
				logger.Log(context.WithoutCancel(r.Context()), entry)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
