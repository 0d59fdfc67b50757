package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/sync"
)

// SyncHandler serves sync configuration and triggering.
type SyncHandler struct {
	engine *sync.Engine
	notify Notifier
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(engine *sync.Engine, notify Notifier) *SyncHandler {
	return &SyncHandler{engine: engine, notify: notify}
}

// CredentialsRequest is the body of POST /api/sync/credentials.
type CredentialsRequest struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Configure handles POST /api/sync/credentials.
func (h *SyncHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}

	if err := h.engine.Configure(req.URL, req.Key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"configured": true})
}

// TestConnection handles POST /api/sync/test.
func (h *SyncHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.TestConnection(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reachable": true})
}

// Run handles POST /api/sync/run. The pass runs synchronously;
// progress is streamed to WebSocket clients while the request is held
// open.
func (h *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	h.notify.SyncStarted(stats.UnsyncedTickets)

	result, err := h.engine.SyncAll(r.Context(), h.notify.SyncProgress)
	if err != nil {
		h.notify.SyncFailed(err)
		writeError(w, err)
		return
	}

	h.notify.SyncCompleted(result)
	writeJSON(w, http.StatusOK, result)
}

// Stats handles GET /api/sync/stats.
func (h *SyncHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AutoSyncRequest is the body of POST /api/sync/auto.
type AutoSyncRequest struct {
	Enabled bool `json:"enabled"`
}

// SetAutoSync handles POST /api/sync/auto.
func (h *SyncHandler) SetAutoSync(w http.ResponseWriter, r *http.Request) {
	var req AutoSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrInvalid, "invalid request body", err))
		return
	}

	if err := h.engine.SetAutoSync(req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"auto_sync_enabled": req.Enabled})
}
