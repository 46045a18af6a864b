package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/service"
)

type RateLimiter interface {
	Allow(ctx context.Context, r *http.Request, tag string) error
}

// TagFunc names the counter a request is charged to.
type TagFunc func(r *http.Request) string

// CallerTag charges a request to its verified identity, else to the Basic
// username it claims, else to "anon".
func CallerTag(r *http.Request) string {
	if id := IdentityFromContext(r.Context()); id.Authenticated || id.User != "" {
		return id.User
	}
	if user, _, ok := service.ParseBasic(r.Header.Get("Authorization")); ok && user != "" {
		return user
	}
	return "anon"
}

// StaticTag charges every request to the same tag.
func StaticTag(tag string) TagFunc {
	return func(*http.Request) string { return tag }
}

// RateLimit applies the fixed-window write limit. Limiter outages are
// handled by the limiter (fail open); only exceeded windows are rejected.
func RateLimit(l RateLimiter, tag TagFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := tag(r)
			if err := l.Allow(r.Context(), r, t); err != nil {
				if errors.Is(err, service.ErrRateLimited) {
					audit.FromContext(r.Context()).SetUser(t)
					WriteError(w, r, http.StatusTooManyRequests, "rate_limited")
					return
				}
				WriteError(w, r, http.StatusInternalServerError, "ratelimit_error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
