package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ctukiosk/backend/internal/db"
	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/logging"
)

// SystemHandler serves health checks and maintenance operations.
type SystemHandler struct {
	repo *db.Repository
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(repo *db.Repository) *SystemHandler {
	return &SystemHandler{repo: repo}
}

// Health handles GET /api/health.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if _, _, err := h.repo.SyncCounts(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "kiosk-backend",
	})
}

// CleanupRequest is the body of POST /api/maintenance/cleanup.
type CleanupRequest struct {
	MaxAgeDays int `json:"max_age_days"`
}

// Cleanup handles POST /api/maintenance/cleanup. Purges tickets older
// than the retention threshold; irreversible.
func (h *SystemHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}

	deleted, err := h.repo.DeleteOldTickets(req.MaxAgeDays)
	if err != nil {
		writeError(w, err)
		return
	}

	logging.Info("old tickets purged", logging.Fields{
		"deleted":      deleted,
		"max_age_days": req.MaxAgeDays,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}
