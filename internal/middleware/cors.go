package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// DefaultOrigin is allowed when FRONTEND_URL names nothing
const DefaultOrigin = "http://localhost:3000"

// ParseOrigins splits a comma-separated origin list, dropping blanks and
// duplicates.
func ParseOrigins(frontendURL string) []string {
	var origins []string
	seen := make(map[string]bool)
	for _, origin := range strings.Split(frontendURL, ",") {
		origin = strings.TrimSpace(origin)
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		origins = []string{DefaultOrigin}
	}
	return origins
}

// CORS allows browser calls from the configured frontend origins and exposes
// the rate limit headers to them.
func CORS(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: ParseOrigins(frontendURL),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{
			"Retry-After",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"X-Request-ID",
		},
		MaxAge: 86400,
	})
	return c.Handler
}
