// Package api serves the run ledger and metrics over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"face-pipeline/internal/models"
	"face-pipeline/internal/postgresdb"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type RunReader interface {
	GetRun(ctx context.Context, runID uuid.UUID) (*models.Run, error)
}

// EventReader returns the published events of a run, oldest first.
type EventReader interface {
	Events(ctx context.Context, runID uuid.UUID) ([]models.Event, error)
}

type APIHandler struct {
	runs   RunReader
	events EventReader
	logger *slog.Logger
}

// NewAPIHandler builds the handlers. events may be nil, in which case the
// events endpoint answers 404.
func NewAPIHandler(runs RunReader, events EventReader, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{runs: runs, events: events, logger: logger}
}

// HandleHealth handles GET /healthz
func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleGetRun handles GET /runs/{runId}
func (h *APIHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	if h.runs == nil {
		h.writeError(w, http.StatusNotFound, "run ledger is not configured")
		return
	}

	run, err := h.runs.GetRun(r.Context(), runID)
	if errors.Is(err, postgresdb.ErrRunNotFound) {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to retrieve run", "run_id", runID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve run")
		return
	}

	h.writeJSON(w, http.StatusOK, run)
}

// HandleRunEvents handles GET /runs/{runId}/events
func (h *APIHandler) HandleRunEvents(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.runID(w, r)
	if !ok {
		return
	}
	if h.events == nil {
		h.writeError(w, http.StatusNotFound, "event stream is not configured")
		return
	}

	events, err := h.events.Events(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to read run events", "run_id", runID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to read run events")
		return
	}
	if len(events) == 0 {
		h.writeError(w, http.StatusNotFound, "no events for run")
		return
	}

	h.writeJSON(w, http.StatusOK, events)
}

func (h *APIHandler) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "runId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid run id format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
