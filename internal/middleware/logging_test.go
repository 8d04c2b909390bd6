package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/insight-coach/internal/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		writeBody     bool
		wantStatus    int64
	}{
		{name: "GET request", method: http.MethodGet, path: "/healthz", handlerStatus: http.StatusOK, wantStatus: 200},
		{name: "POST insight", method: http.MethodPost, path: "/api/v1/insight", handlerStatus: http.StatusTooManyRequests, wantStatus: 429},
		{name: "404 request", method: http.MethodGet, path: "/notfound", handlerStatus: http.StatusNotFound, wantStatus: 404},
		{name: "implicit 200", method: http.MethodGet, path: "/version", writeBody: true, wantStatus: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.InfoLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.writeBody {
					_, _ = w.Write([]byte("{}"))
					return
				}
				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req = req.WithContext(request.WithRequestID(req.Context(), "req-1"))
			w := httptest.NewRecorder()

			Logging(zap.New(core))(handler).ServeHTTP(w, req)

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 http_request entry, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["status_code"] != tt.wantStatus {
				t.Errorf("Expected status_code %d, got %v", tt.wantStatus, fields["status_code"])
			}
			if fields["path"] != tt.path {
				t.Errorf("Expected path %q, got %v", tt.path, fields["path"])
			}
			if fields["request_id"] != "req-1" {
				t.Errorf("Expected request_id req-1, got %v", fields["request_id"])
			}
		})
	}
}

func TestStatusRecorder_FirstWriteHeaderWins(t *testing.T) {
	t.Parallel()

	rec := newStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusAccepted)
	rec.WriteHeader(http.StatusInternalServerError)

	if rec.statusCode != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", rec.statusCode)
	}
}

func TestAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		wantEvent string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantEvent: "rate_limit_violation"},
		{name: "too large", status: http.StatusRequestEntityTooLarge, wantEvent: "oversized_request"},
		{name: "forbidden", status: http.StatusForbidden, wantEvent: "security_event"},
		{name: "ok is not audited", status: http.StatusOK},
		{name: "bad request is not audited", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.InfoLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/insight", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

			Audit(zap.New(core))(handler).ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantEvent == "" {
				if logs.Len() != 0 {
					t.Errorf("Expected no audit entries, got %d", logs.Len())
				}
				return
			}
			entries := logs.FilterMessage(tt.wantEvent).All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 %s entry, got %d", tt.wantEvent, logs.Len())
			}
			if ip := entries[0].ContextMap()["ip"]; ip != "203.0.113.9" {
				t.Errorf("Expected ip 203.0.113.9, got %v", ip)
			}
		})
	}
}
