package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-hub/internal/logging"
	"media-hub/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// healthPingTimeout bounds the persistence check in HealthCheck.
const healthPingTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	Persistence string `json:"persistence"`
	Error       string `json:"error,omitempty"`

	MediaItems  int   `json:"mediaItems"`
	NextID      int64 `json:"nextId"`
	LiveHandles int   `json:"liveHandles"`

	MemoryUsage   float64 `json:"memoryUsage,omitempty"`
	UploadsPaused bool    `json:"uploadsPaused"`

	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports store and persistence status. A failing database
// marks the service degraded with 503; the store itself keeps serving from
// memory.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	state := h.store.Snapshot()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Persistence:  "memory",
		MediaItems:   len(state.Media),
		NextID:       state.NextID,
		LiveHandles:  h.registry.Len(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if h.config.Memory != nil {
		response.MemoryUsage = h.config.Memory.Usage()
		response.UploadsPaused = h.config.Memory.Paused()
	}

	statusCode := http.StatusOK
	if h.db != nil {
		response.Persistence = "sqlite"

		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			logging.Warn("Health check: database ping failed: %v", err)
			response.Status = statusDegraded
			response.Error = "database unavailable"
			statusCode = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, statusCode, response)
}

// LivenessCheck always returns 200 while the process is serving
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
