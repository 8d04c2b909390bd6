package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/insight-coach/internal/apperr"
	"github.com/benvon/insight-coach/internal/intent"
	"github.com/benvon/insight-coach/internal/models"
	"github.com/benvon/insight-coach/internal/ratelimit"
	"github.com/benvon/insight-coach/internal/services/insight"
	"github.com/gorilla/mux"
)

type fakeGenerator struct {
	generateFunc func(ctx context.Context, req *models.InsightRequest) (*insight.Result, error)
}

var _ InsightGenerator = (*fakeGenerator)(nil)

func (f *fakeGenerator) Generate(ctx context.Context, req *models.InsightRequest) (*insight.Result, error) {
	return f.generateFunc(ctx, req)
}

func serveInsight(t *testing.T, gen InsightGenerator, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := mux.NewRouter()
	NewInsightHandler(gen, nil).RegisterRoutes(r.PathPrefix("/api/v1").Subrouter())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insight", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInsightHandler_CreateInsight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		generate func(ctx context.Context, req *models.InsightRequest) (*insight.Result, error)
		validate func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "success",
			body: `{"userId":"u1","question":"What should I eat?","metrics":{"steps":"8,000"}}`,
			generate: func(_ context.Context, req *models.InsightRequest) (*insight.Result, error) {
				if req.UserID != "u1" || req.Metrics["steps"] != "8,000" {
					return nil, errors.New("request not decoded")
				}
				return &insight.Result{Insight: "Eat the salmon."}, nil
			},
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				if w.Code != http.StatusOK {
					t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
				}
				var body map[string]any
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body["insight"] != "Eat the salmon." {
					t.Errorf("insight = %v", body["insight"])
				}
				if _, ok := body["debug"]; ok {
					t.Error("debug should be omitted when not produced")
				}
			},
		},
		{
			name: "debug payload",
			body: `{"userId":"u1","question":"recap?"}`,
			generate: func(context.Context, *models.InsightRequest) (*insight.Result, error) {
				return &insight.Result{Insight: "Solid week.", Debug: &insight.Debug{Intent: intent.Progress}}, nil
			},
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				var body struct {
					Debug struct {
						Intent string `json:"intent"`
					} `json:"debug"`
				}
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Debug.Intent != "progress" {
					t.Errorf("debug = %+v", body.Debug)
				}
			},
		},
		{
			name: "malformed body",
			body: `{"userId":`,
			generate: func(context.Context, *models.InsightRequest) (*insight.Result, error) {
				t.Error("service must not be called for a malformed body")
				return nil, nil
			},
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Invalid request body") {
					t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
				}
			},
		},
		{
			name: "validation error",
			body: `{"userId":"u1","question":""}`,
			generate: func(context.Context, *models.InsightRequest) (*insight.Result, error) {
				return nil, apperr.Validation("question is required")
			},
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				if w.Code != http.StatusBadRequest {
					t.Errorf("status = %d", w.Code)
				}
				var body models.ErrorResponse
				_ = json.NewDecoder(w.Body).Decode(&body)
				if body.Error != "question is required" {
					t.Errorf("error = %q", body.Error)
				}
			},
		},
		{
			name: "rate limited",
			body: `{"userId":"u1","question":"again"}`,
			generate: func(context.Context, *models.InsightRequest) (*insight.Result, error) {
				d := ratelimit.Decision{Count: 31, Limit: 30, ResetAt: time.Now().Add(30 * time.Second)}
				return nil, apperr.RateLimited(&ratelimit.LimitError{Decision: d}, insight.RateLimitMessage)
			},
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				if w.Code != http.StatusTooManyRequests {
					t.Errorf("status = %d", w.Code)
				}
				if w.Header().Get("Retry-After") == "" || w.Header().Get("X-RateLimit-Limit") != "30" {
					t.Errorf("headers = %v", w.Header())
				}
			},
		},
		{
			name: "configuration error is generic",
			body: `{"userId":"u1","question":"hi"}`,
			generate: func(context.Context, *models.InsightRequest) (*insight.Result, error) {
				return nil, apperr.Configuration(nil, "OPENAI_API_KEY is not set")
			},
			validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "OPENAI_API_KEY") {
					t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := serveInsight(t, &fakeGenerator{generateFunc: tt.generate}, tt.body)
			tt.validate(t, w)
		})
	}
}

func TestInsightHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	NewInsightHandler(&fakeGenerator{}, nil).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/insight", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
