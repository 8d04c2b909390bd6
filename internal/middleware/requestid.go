package middleware

import (
	"net/http"

	"github.com/benvon/insight-coach/internal/request"
)

// RequestID tags each request with an id, echoed in the X-Request-ID
// response header and available through request.RequestID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := request.NewRequestID(r)
		w.Header().Set(request.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(request.WithRequestID(r.Context(), id)))
	})
}
