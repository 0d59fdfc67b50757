package handlers

import (
	"net/http"
	"time"

	apperrors "github.com/ctukiosk/backend/internal/errors"
	"github.com/ctukiosk/backend/internal/export"
)

// ExportHandler serves downloadable data exports.
type ExportHandler struct {
	service *export.Service
	notify  Notifier
}

// NewExportHandler creates an ExportHandler.
func NewExportHandler(service *export.Service, notify Notifier) *ExportHandler {
	return &ExportHandler{service: service, notify: notify}
}

// Download handles GET /api/export/{format} for "json" and "csv".
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")

	var data []byte
	var contentType string
	var err error

	switch format {
	case "json":
		data, err = h.service.JSON()
		contentType = "application/json"
	case "csv":
		data, err = h.service.CSV()
		contentType = "text/csv"
	default:
		writeError(w, apperrors.Newf(apperrors.ErrInvalid, "unsupported export format %q", format))
		return
	}

	if err != nil {
		h.notify.ExportFailed(err)
		writeError(w, err)
		return
	}
	h.notify.ExportCompleted(format, len(data))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, time.Now())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
