// Package requesttime captures one "now" per HTTP request so every timestamp
// written during the request (registration time, audit events) agrees.
package requesttime

import (
	"net/http"
	"time"

	"charity/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
