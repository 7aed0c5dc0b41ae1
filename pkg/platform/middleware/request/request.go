// Package request provides request ID middleware and access helpers.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"landlock/pkg/requestcontext"
)

// HeaderName is the response header carrying the request ID.
const HeaderName = "X-Request-ID"

// Middleware assigns every request a UUID, honoring an inbound X-Request-ID
// from a trusted proxy, and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderName, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
