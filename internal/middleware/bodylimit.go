package middleware

import "net/http"

// MaxBodyBytes is the request body cap.
const MaxBodyBytes = 1 << 20

// BodyLimit rejects declared bodies over max before any handler work and
// caps undeclared ones while they are read.
func BodyLimit(max int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > max {
				WriteError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}
