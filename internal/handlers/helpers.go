package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/insight-coach/internal/apperr"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/benvon/insight-coach/internal/ratelimit"
)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage bounds what a client sees of an error message
func sanitizeErrorMessage(message string) string {
	if len(message) > maxErrorMessageLength {
		return message[:maxErrorMessageLength] + "..."
	}
	return message
}

// respondJSONError sends {"error": message}
func respondJSONError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: sanitizeErrorMessage(message)})
}

// respondAppError maps err onto a status and a client-safe message. Rate
// limit rejections also get Retry-After and X-RateLimit-* headers.
func respondAppError(w http.ResponseWriter, err error, now time.Time) {
	status := apperr.StatusCode(err)

	var limitErr *ratelimit.LimitError
	if status == http.StatusTooManyRequests && errors.As(err, &limitErr) {
		setRateLimitHeaders(w.Header(), limitErr.Decision, now)
	}

	respondJSONError(w, status, apperr.PublicMessage(err))
}

func setRateLimitHeaders(h http.Header, d ratelimit.Decision, now time.Time) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining()))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	h.Set("Retry-After", strconv.Itoa(int(d.RetryAfter(now)/time.Second)))
}
