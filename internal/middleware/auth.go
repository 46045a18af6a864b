package middleware

import (
	"context"
	"net/http"

	"github.com/raakeshmj/coreenginedb/internal/audit"
	"github.com/raakeshmj/coreenginedb/internal/auth"
)

type ContextKey string

const (
	IdentityContextKey ContextKey = "identity"
)

type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) auth.Identity
}

// Authenticate resolves the caller's identity and stores it in the request
// context. It never rejects; handlers decide what an identity may do.
func Authenticate(resolver IdentityResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := resolver.Resolve(r.Context(), r)
			if id.Authenticated {
				audit.FromContext(r.Context()).SetUser(id.User)
			}
			ctx := context.WithValue(r.Context(), IdentityContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the resolved identity, or an unauthenticated
// one when Authenticate did not run.
func IdentityFromContext(ctx context.Context) auth.Identity {
	if id, ok := ctx.Value(IdentityContextKey).(auth.Identity); ok {
		return id
	}
	return auth.Identity{Reason: "unauthorized"}
}

// RequireAuth rejects unauthenticated callers with the identity's reason:
// 429 for rate_limited, 401 otherwise.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if !id.Authenticated {
			reason := id.Reason
			if reason == "" {
				reason = "unauthorized"
			}
			status := http.StatusUnauthorized
			if reason == "rate_limited" {
				status = http.StatusTooManyRequests
			}
			WriteError(w, r, status, reason)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperadmin rejects authenticated callers without the superadmin role.
func RequireSuperadmin(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).IsSuperadmin() {
			WriteError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

type CSRFChecker interface {
	CheckCSRF(r *http.Request) error
}

// CSRF rejects browser writes without the CSRF header.
func CSRF(checker CSRFChecker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := checker.CheckCSRF(r); err != nil {
				WriteError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
