package monitoring

import (
	"encoding/json"
	"net/http"
	"time"

	"braillekbd/keyboard"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string                   `json:"status"`
	InstanceID string                   `json:"instance_id"`
	Version    string                   `json:"version"`
	UptimeSec  int64                    `json:"uptime_sec"`
	Keyboards  map[string]keyboard.Info `json:"keyboards"`
}

// HealthHandler creates an HTTP handler for health checks
type HealthHandler struct {
	instanceID string
	version    string
	startTime  time.Time
	hub        *keyboard.Hub
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(instanceID, version string, hub *keyboard.Hub) *HealthHandler {
	return &HealthHandler{
		instanceID: instanceID,
		version:    version,
		startTime:  time.Now(),
		hub:        hub,
	}
}

// ServeHTTP handles the /health endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	infos := h.hub.Infos()

	// Any keyboard without a transport degrades the instance
	status := "healthy"
	for _, info := range infos {
		if !info.Available {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:     status,
		InstanceID: h.instanceID,
		Version:    h.version,
		UptimeSec:  int64(time.Since(h.startTime).Seconds()),
		Keyboards:  infos,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}
