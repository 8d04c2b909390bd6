package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/insight-coach/internal/models"
	"github.com/benvon/insight-coach/internal/services/insight"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// InsightGenerator produces an insight for a request
type InsightGenerator interface {
	Generate(ctx context.Context, req *models.InsightRequest) (*insight.Result, error)
}

// InsightHandler serves POST /api/v1/insight
type InsightHandler struct {
	service InsightGenerator
	logger  *zap.Logger
	now     func() time.Time
}

// NewInsightHandler creates a new insight handler
func NewInsightHandler(service InsightGenerator, logger *zap.Logger) *InsightHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightHandler{service: service, logger: logger, now: time.Now}
}

// RegisterRoutes registers insight routes on the /api/v1 subrouter
func (h *InsightHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/insight", h.CreateInsight).Methods("POST")
}

// CreateInsight answers one question
func (h *InsightHandler) CreateInsight(w http.ResponseWriter, r *http.Request) {
	var req models.InsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		respondAppError(w, err, h.now())
		return
	}

	resp := models.InsightResponse{Insight: res.Insight}
	if res.Debug != nil {
		resp.Debug = res.Debug
	}
	respondJSON(w, http.StatusOK, resp)
}
