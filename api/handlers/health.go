package handlers

import (
	"net/http"
	"time"

	"status-service/core/utils"
)

type HealthHandler struct {
	version  string
	bootTime time.Time
}

func NewHealthHandler(version string, bootTime time.Time) *HealthHandler {
	return &HealthHandler{version: version, bootTime: bootTime.UTC()}
}

// Health reports liveness only; it does not touch the database.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": utils.SpacedTimestamp(h.bootTime),
	})
}
