package handlers

import (
	"net/http"

	"github.com/grofit/backend/pkg/database"
	"github.com/grofit/backend/pkg/logger"
)

// HealthHandler serves the service health endpoint.
type HealthHandler struct {
	db     *database.DB
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *database.DB, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: log}
}

// Get returns service and database health.
// GET /health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	db, _ := h.db.HealthCheck(r.Context())

	status := http.StatusOK
	overall := "ok"
	if !db.Healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	writeJSON(w, status, map[string]interface{}{
		"status":   overall,
		"service":  "grofit-backend",
		"database": db,
	})
}
