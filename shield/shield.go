// CLAUDE:SUMMARY HTTP middleware stack: security headers, request-id tracing, body caps.
// Package shield provides the HTTP middleware stack for the registry's
// status surface.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack() {
//	    r.Use(mw)
//	}
package shield

import (
	"net/http"

	"github.com/hazyhaar/fieldreg/idgen"
	"github.com/hazyhaar/fieldreg/kit"
)

// DefaultMaxBody caps request bodies on the status API. The registry
// accepts no uploads, so small.
const DefaultMaxBody = 64 * 1024

// DefaultStack returns the standard middleware stack, ordered:
// SecurityHeaders → RequestID → MaxBody.
func DefaultStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		RequestID,
		MaxBody(DefaultMaxBody),
	}
}

// SecurityHeaders sets conservative response headers for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// RequestID assigns each request an id, echoes it in X-Request-ID, and
// threads it through the context for log correlation. An id supplied by
// the caller is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = idgen.New()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), id)))
	})
}

// MaxBody rejects request bodies larger than n bytes.
func MaxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > n {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
