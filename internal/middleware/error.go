package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/benvon/insight-coach/internal/apperr"
	"github.com/benvon/insight-coach/internal/logger"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/benvon/insight-coach/internal/request"
	"go.uber.org/zap"
)

// ErrorHandler recovers panics in later handlers and answers with the
// generic failure body.
func ErrorHandler(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					// Log panic details server-side but don't expose to client
					log.Error("panic_recovered",
						zap.Any("error", err),
						zap.String("path", logger.SanitizePath(r.URL.Path)),
						zap.String("method", r.Method),
						zap.String("request_id", request.RequestID(r.Context())),
					)
					writeError(w, http.StatusInternalServerError, apperr.GenericFailureMessage)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// writeError sends the same {"error": ...} body the handlers use
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
