package handlers

import (
	"context"

	"github.com/maruel/cartracker/internal/models"
)

// HealthHandler reports server health.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a new health handler reporting version.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(ctx context.Context, req models.HealthRequest) (*models.HealthResponse, error) {
	return &models.HealthResponse{Status: "ok", Version: h.version}, nil
}
