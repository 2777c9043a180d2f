package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskping/taskping/internal/database"
	"github.com/taskping/taskping/internal/queue"
)

// HealthChecker handles health check requests
type HealthChecker struct {
	db    *database.DB
	redis *redis.Client
	queue queue.JobQueue
}

// NewHealthChecker creates a new health checker. Redis and queue may be
// nil when the process does not carry those dependencies.
func NewHealthChecker(db *database.DB, redisClient *redis.Client, jobQueue queue.JobQueue) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient, queue: jobQueue}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint. Basic mode only confirms
// the process is serving; mode=extended pings the dependencies.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if r.URL.Query().Get("mode") == "extended" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := make(map[string]string)
		record := func(name string, err error) {
			if err != nil {
				response.Status = "unhealthy"
				checks[name] = "unhealthy: " + err.Error()
				return
			}
			checks[name] = "healthy"
		}

		if h.db != nil {
			record("database", h.db.HealthCheck(ctx))
		}
		if h.redis != nil {
			record("redis", h.redis.Ping(ctx).Err())
		}
		if h.queue != nil {
			record("queue", h.queue.HealthCheck(ctx))
		}

		response.Checks = checks
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
