package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/grofit/backend/internal/analytics"
	"github.com/grofit/backend/internal/contracts"
	"github.com/grofit/backend/internal/ingest"
	"github.com/grofit/backend/pkg/logger"
)

// AnalyticsHandler serves analytics triggers and recommendation reads.
type AnalyticsHandler struct {
	orchestrator *analytics.Orchestrator
	flips        contracts.FlipResultRepository
	logger       *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(orc *analytics.Orchestrator, flips contracts.FlipResultRepository, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		orchestrator: orc,
		flips:        flips,
		logger:       log,
	}
}

type analyticsRunRequest struct {
	Date string `json:"date"`
}

// Run triggers flip analytics for one date, defaulting to yesterday UTC.
// Manual triggers pass no content hash and therefore always recompute.
// POST /api/v1/analytics/run
func (h *AnalyticsHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req analyticsRunRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	date := req.Date
	if date == "" {
		date = ingest.YesterdayUTC(time.Now())
	}

	if err := h.orchestrator.Run(r.Context(), date, ""); err != nil {
		h.logger.WithError(err).WithField("date", date).Error("Manual analytics run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"date":   date,
		"status": "ok",
	})
}

// ListRecommendations returns stored recommendations for a date in rank order.
// GET /api/v1/recommendations?date=...&limit=...
func (h *AnalyticsHandler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = ingest.YesterdayUTC(time.Now())
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	results, err := h.flips.ListByDate(r.Context(), date, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list recommendations")
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":            date,
		"count":           len(results),
		"recommendations": results,
	})
}
