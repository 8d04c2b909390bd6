package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const healthCheckTimeout = 5 * time.Second

// Version is reported by GET /version. Overridden at build time.
var Version = "dev"

// CheckFunc reports whether one dependency is reachable
type CheckFunc func(ctx context.Context) error

// HealthChecker handles health check requests
type HealthChecker struct {
	names  []string
	checks map[string]CheckFunc
}

// HealthOption registers a dependency check
type HealthOption func(*HealthChecker)

// WithCheck registers fn under name
func WithCheck(name string, fn CheckFunc) HealthOption {
	return func(h *HealthChecker) {
		if _, exists := h.checks[name]; !exists {
			h.names = append(h.names, name)
		}
		h.checks[name] = fn
	}
}

// WithDatabase checks the Postgres pool
func WithDatabase(db interface {
	PingContext(ctx context.Context) error
}) HealthOption {
	return WithCheck("database", db.PingContext)
}

// WithRedis checks the Redis connection
func WithRedis(client redis.UniversalClient) HealthOption {
	return WithCheck("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// WithQueue checks the RabbitMQ connection
func WithQueue(q interface {
	HealthCheck(ctx context.Context) error
}) HealthOption {
	return WithCheck("rabbitmq", q.HealthCheck)
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(opts ...HealthOption) *HealthChecker {
	h := &HealthChecker{checks: make(map[string]CheckFunc)}
	for _, opt := range opts {
		opt(h)
	}
	sort.Strings(h.names)
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint. ?mode=extended also checks
// every configured dependency.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("mode") != "extended" {
		respondJSON(w, http.StatusOK, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response.Checks = make(map[string]string, len(h.names))
	for _, name := range h.names {
		if err := h.checks[name](ctx); err != nil {
			response.Status = "unhealthy"
			response.Checks[name] = "unhealthy"
			continue
		}
		response.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, response)
}

// VersionInfo handles the /version endpoint
func VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
