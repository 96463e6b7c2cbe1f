package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/grofit/backend/internal/contracts"
	"github.com/grofit/backend/internal/ingest"
	"github.com/grofit/backend/pkg/logger"
)

// IngestionHandler serves ingestion triggers and run inspection.
type IngestionHandler struct {
	orchestrator *ingest.Orchestrator
	runs         contracts.RunRepository
	logger       *logger.Logger
}

// NewIngestionHandler creates a new ingestion handler.
func NewIngestionHandler(orc *ingest.Orchestrator, runs contracts.RunRepository, log *logger.Logger) *IngestionHandler {
	return &IngestionHandler{
		orchestrator: orc,
		runs:         runs,
		logger:       log,
	}
}

type ingestRequest struct {
	Date string `json:"date"`
}

// IngestDaily triggers ingestion for one date, defaulting to yesterday UTC.
// POST /api/v1/ingestion/daily
func (h *IngestionHandler) IngestDaily(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if r.Body != nil {
		// An empty body means the default date.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	date := req.Date
	if date == "" {
		date = ingest.YesterdayUTC(time.Now())
	}

	if err := h.orchestrator.Ingest(r.Context(), date); err != nil {
		h.logger.WithError(err).WithField("date", date).Error("Manual ingestion failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"date":   date,
		"status": "ok",
	})
}

type backfillRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Backfill triggers ingestion for an inclusive date range.
// POST /api/v1/ingestion/backfill
func (h *IngestionHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	results, err := h.orchestrator.IngestRange(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	failed := 0
	for _, res := range results {
		if res.Status != "ok" {
			failed++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":    req.From,
		"to":      req.To,
		"total":   len(results),
		"failed":  failed,
		"results": results,
	})
}

// ListRuns returns recent ingestion runs for a source.
// GET /api/v1/runs?source=...&limit=...
func (h *IngestionHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = contracts.SourcePriceHistoryDaily
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	runs, err := h.runs.ListRecent(r.Context(), source, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"source": source,
		"count":  len(runs),
		"runs":   runs,
	})
}
