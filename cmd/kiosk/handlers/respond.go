// Package handlers provides the localhost REST API consumed by the
// kiosk frontend.
package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/logging"
	"github.com/ctukiosk/backend/internal/sync"
)

// Notifier pushes backend events to connected frontend clients. The
// WebSocket hub implements it; tests use a no-op.
type Notifier interface {
	SyncStarted(total int)
	SyncProgress(p sync.Progress)
	SyncCompleted(r *sync.Result)
	SyncFailed(err error)
	ExportCompleted(format string, sizeBytes int)
	ExportFailed(err error)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) SyncStarted(int)             {}
func (NopNotifier) SyncProgress(sync.Progress)  {}
func (NopNotifier) SyncCompleted(*sync.Result)  {}
func (NopNotifier) SyncFailed(error)            {}
func (NopNotifier) ExportCompleted(string, int) {}
func (NopNotifier) ExportFailed(error)          {}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", err)
	}
}

// writeError maps coded application errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrInvalid, apperrors.ErrInvalidConfiguration:
		status = http.StatusBadRequest
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrDuplicateReference, apperrors.ErrSyncInProgress:
		status = http.StatusConflict
	case apperrors.ErrOffline, apperrors.ErrStorageUnavailable, apperrors.ErrNotInitialized:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logging.Error("request failed", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: string(code)})
}
